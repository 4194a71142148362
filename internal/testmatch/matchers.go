// Package testmatch holds gomega matchers shared by the test suites.
package testmatch

import (
	"fmt"
	"strings"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

func toMessage(x interface{}) (string, bool) {
	switch v := x.(type) {
	case error:
		if v == nil {
			return "", false
		}
		return v.Error(), true
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

type MatchBackendErrorMatcher struct {
	Error error
}

func (matcher *MatchBackendErrorMatcher) Match(actual interface{}) (success bool, err error) {
	msg, ok := toMessage(actual)
	if !ok {
		return false, fmt.Errorf("MatchBackendError matcher requires an error or a message, Got:\n%s", format.Object(actual, 1))
	}

	return strings.Contains(msg, matcher.Error.Error()), nil
}

func (matcher *MatchBackendErrorMatcher) FailureMessage(actual interface{}) (message string) {
	return format.Message(actual, "to be", matcher.Error.Error())
}

func (matcher *MatchBackendErrorMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	return format.Message(actual, "not to be", matcher.Error.Error())
}

// MatchBackendError succeeds when the error, or an error message returned
// in a response body, carries the coded message of err.
func MatchBackendError(err error) types.GomegaMatcher {
	return &MatchBackendErrorMatcher{
		Error: err,
	}
}
