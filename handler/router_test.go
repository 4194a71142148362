package handler

import (
	"net/http"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sporty-backend/errs"
	. "sporty-backend/internal/testmatch"
	"sporty-backend/ratelimit"
)

var _ = Describe("Router", func() {
	var h *harness

	AfterEach(func() {
		h.Close()
	})

	Context("without a limiter", func() {
		BeforeEach(func() {
			h = newHarness(nil)
		})

		Specify("root answers", func() {
			res := h.do(http.MethodGet, "/", "", nil)
			Expect(res.Status).To(Equal(http.StatusOK))
			Expect(string(res.Body)).To(Equal("server is running"))
		})

		Specify("health", func() {
			res := h.do(http.MethodGet, "/healthz", "", nil)
			Expect(res.Status).To(Equal(http.StatusOK))

			var body map[string]string
			res.JSON(&body)
			Expect(body["status"]).To(Equal("ok"))
		})

		Specify("every response carries a request id", func() {
			res := h.do(http.MethodGet, "/", "", nil)
			_, err := uuid.Parse(res.Header.Get("X-Request-ID"))
			Expect(err).To(BeNil())
		})

		Specify("requests are exported under their route pattern", func() {
			h.do(http.MethodGet, "/users/a@test.test", "", nil)
			h.do(http.MethodGet, "/users/b@test.test", "", nil)

			res := h.do(http.MethodGet, "/metrics", "", nil)
			Expect(res.Status).To(Equal(http.StatusOK))
			Expect(string(res.Body)).To(ContainSubstring(`http_requests_total{method="GET",route="/users/{email}",status="200"} 2`))
		})

		Specify("unknown routes are 404", func() {
			res := h.do(http.MethodGet, "/nope", "", nil)
			Expect(res.Status).To(Equal(http.StatusNotFound))
		})

		Specify("preflight is answered", func() {
			req, err := http.NewRequest(http.MethodOptions, h.server.URL+"/classes", nil)
			Expect(err).To(BeNil())
			req.Header.Set("Origin", "https://sporty.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			res, err := h.server.Client().Do(req)
			Expect(err).To(BeNil())
			defer res.Body.Close()
			Expect(res.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Context("with a limiter", func() {
		var limiter *ratelimit.Local

		BeforeEach(func() {
			limiter = ratelimit.NewLocal(ratelimit.PerMinute(2, 2))
			h = newHarness(limiter)
		})

		AfterEach(func() {
			limiter.Stop()
		})

		Specify("requests over the limit are rejected", func() {
			Expect(h.do(http.MethodGet, "/approved-classes", "", nil).Status).To(Equal(http.StatusOK))
			Expect(h.do(http.MethodGet, "/approved-classes", "", nil).Status).To(Equal(http.StatusOK))

			res := h.do(http.MethodGet, "/approved-classes", "", nil)
			Expect(res.Status).To(Equal(http.StatusTooManyRequests))
			Expect(res.Header.Get("Retry-After")).NotTo(BeEmpty())
			Expect(res.Err()).To(MatchBackendError(errs.ErrRateLimited))

			metrics := h.do(http.MethodGet, "/metrics", "", nil)
			Expect(string(metrics.Body)).To(ContainSubstring("http_rate_limited_total 1"))
		})

		Specify("health is not throttled", func() {
			for i := 0; i < 5; i++ {
				Expect(h.do(http.MethodGet, "/healthz", "", nil).Status).To(Equal(http.StatusOK))
			}
		})
	})
})
