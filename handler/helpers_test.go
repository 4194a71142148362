package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"sporty-backend/enrollment"
	"sporty-backend/entity"
	"sporty-backend/events"
	"sporty-backend/jwt"
	"sporty-backend/metrics"
	"sporty-backend/payment"
	"sporty-backend/ratelimit"
	"sporty-backend/store"
	"sporty-backend/store/memstore"
)

var key = []byte("test-key")

type fakeGateway struct {
	amounts []int64
}

func (f *fakeGateway) CreateIntent(_ context.Context, amount int64) (*payment.Intent, error) {
	f.amounts = append(f.amounts, amount)
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type harness struct {
	mem     *memstore.Memory
	st      *store.Store
	tokens  *jwt.Service
	bus     *events.Local
	gateway *fakeGateway
	reg     *prometheus.Registry
	server  *httptest.Server
}

func newHarness(limiter ratelimit.Limiter) *harness {
	h := &harness{
		mem:     memstore.New(),
		tokens:  jwt.NewService(key, time.Hour),
		bus:     events.NewLocal(),
		gateway: &fakeGateway{},
		reg:     prometheus.NewRegistry(),
	}
	h.st = h.mem.Store()
	rec := metrics.NewCollector(h.reg)

	co := enrollment.NewCoordinator(enrollment.Deps{
		Selections:  h.st.Selections,
		Enrollments: h.st.Enrollments,
		Classes:     h.st.Classes,
		Tx:          h.st.Tx,
		Events:      h.bus,
		Metrics:     rec,
	}, enrollment.Options{SeatGuard: true})

	h.server = httptest.NewServer(NewRouter(Deps{
		Store:          h.st,
		Tokens:         h.tokens,
		Enrollment:     co,
		Payments:       h.gateway,
		Events:         h.bus,
		Metrics:        rec,
		Gatherer:       h.reg,
		Limiter:        limiter,
		AllowedOrigins: []string{"*"},
	}))
	return h
}

func (h *harness) Close() {
	h.server.Close()
}

// user seeds a user with role and returns a token for it.
func (h *harness) user(email string, role entity.Role) string {
	h.mem.Seed([]entity.User{{Email: email, Name: email, Role: role}}, nil, nil)

	t, err := h.tokens.Issue(jwt.Claims{Email: email})
	Expect(err).To(BeNil())
	return t
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *response) JSON(v interface{}) {
	Expect(json.Unmarshal(r.Body, v)).To(Succeed(), string(r.Body))
}

func (h *harness) do(method, path, token string, body interface{}) *response {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).To(BeNil())
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, h.server.URL+path, rd)
	Expect(err).To(BeNil())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := h.server.Client().Do(req)
	Expect(err).To(BeNil())
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	Expect(err).To(BeNil())
	return &response{Status: res.StatusCode, Header: res.Header, Body: b}
}

type apiError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Err is the message of an error body, for use with MatchBackendError.
func (r *response) Err() string {
	var e apiError
	r.JSON(&e)
	Expect(e.Error).To(BeTrue())
	return e.Message
}

func ctx() context.Context {
	return context.Background()
}
