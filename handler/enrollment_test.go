package handler

import (
	"net/http"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"sporty-backend/enrollment"
	"sporty-backend/entity"
	"sporty-backend/errs"
	. "sporty-backend/internal/testmatch"
)

var _ = Describe("Enrollment", func() {
	var (
		h       *harness
		student string
		class   entity.Class
		sel     entity.Selection
	)

	BeforeEach(func() {
		h = newHarness(nil)
		student = h.user("student@test.test", entity.RoleNone)

		class = entity.Class{
			ID:              primitive.NewObjectID(),
			Name:            "Yoga",
			InstructorEmail: "ina@test.test",
			Price:           20,
			AvailableSeats:  5,
			Status:          entity.StatusApproved,
		}
		sel = entity.Selection{
			ID:            primitive.NewObjectID(),
			UserEmail:     "student@test.test",
			ClassSnapshot: class.Snapshot(),
		}
		h.mem.Seed(nil, []entity.Class{class}, []entity.Selection{sel})
	})

	AfterEach(func() {
		h.Close()
	})

	request := func() map[string]interface{} {
		return map[string]interface{}{
			"transactionId": "pi_123",
			"price":         20,
			"enrolledClass": entity.EnrolledClass{ID: sel.ID, ClassSnapshot: sel.ClassSnapshot},
		}
	}

	Describe("CreatePaymentIntent", func() {
		Specify("happy path", func() {
			res := h.do(http.MethodPost, "/create-payment-intent", student, map[string]float64{"price": 19.99})
			Expect(res.Status).To(Equal(http.StatusOK))

			var body intentResponse
			res.JSON(&body)
			Expect(body.ClientSecret).To(Equal("pi_test_secret"))
			Expect(h.gateway.amounts).To(Equal([]int64{1999}))
		})

		Specify("sad path - zero price", func() {
			res := h.do(http.MethodPost, "/create-payment-intent", student, map[string]float64{"price": 0})
			Expect(res.Status).To(Equal(http.StatusBadRequest))
			Expect(res.Err()).To(MatchBackendError(errs.ErrInvalidAmount))
			Expect(h.gateway.amounts).To(BeEmpty())
		})

		Specify("sad path - no token", func() {
			res := h.do(http.MethodPost, "/create-payment-intent", "", map[string]float64{"price": 10})
			Expect(res.Status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("Enroll", func() {
		Specify("happy path", func() {
			res := h.do(http.MethodPost, "/enrolled", student, request())
			Expect(res.Status).To(Equal(http.StatusOK), string(res.Body))

			var result enrollment.Result
			res.JSON(&result)
			Expect(result.PaymentResult.InsertedID.IsZero()).To(BeFalse())
			Expect(result.DeleteResult.DeletedCount).To(Equal(int64(1)))
			Expect(result.ClassUpdateResult.ModifiedCount).To(Equal(int64(1)))

			c, err := h.st.Classes.FindByID(ctx(), class.ID)
			Expect(err).To(BeNil())
			Expect(c.AvailableSeats).To(Equal(int64(4)))
			Expect(c.NumberOfStudents).To(Equal(int64(1)))

			res = h.do(http.MethodGet, "/enrolled/student@test.test", student, nil)
			var list []entity.Enrollment
			res.JSON(&list)
			Expect(list).To(HaveLen(1))
			Expect(list[0].Email).To(Equal("student@test.test"))
			Expect(list[0].TransactionID).To(Equal("pi_123"))
			Expect(list[0].EnrolledClass.ID).To(Equal(sel.ID))

			res = h.do(http.MethodGet, "/metrics", "", nil)
			Expect(string(res.Body)).To(ContainSubstring(`enrollments_total{outcome="enrolled"} 1`))
		})

		Specify("sad path - paying twice for one selection", func() {
			Expect(h.do(http.MethodPost, "/enrolled", student, request()).Status).To(Equal(http.StatusOK))

			res := h.do(http.MethodPost, "/enrolled", student, request())
			Expect(res.Status).To(Equal(http.StatusConflict))
			Expect(res.Err()).To(MatchBackendError(errs.ErrSelectionConsumed))

			c, err := h.st.Classes.FindByID(ctx(), class.ID)
			Expect(err).To(BeNil())
			Expect(c.AvailableSeats).To(Equal(int64(4)))
		})

		Specify("sad path - full class", func() {
			full := entity.Class{ID: primitive.NewObjectID(), Name: "Full", Status: entity.StatusApproved}
			fullSel := entity.Selection{ID: primitive.NewObjectID(), UserEmail: "student@test.test", ClassSnapshot: full.Snapshot()}
			h.mem.Seed(nil, []entity.Class{full}, []entity.Selection{fullSel})

			res := h.do(http.MethodPost, "/enrolled", student, map[string]interface{}{
				"transactionId": "pi_456",
				"price":         1,
				"enrolledClass": entity.EnrolledClass{ID: fullSel.ID, ClassSnapshot: fullSel.ClassSnapshot},
			})
			Expect(res.Status).To(Equal(http.StatusConflict))
			Expect(res.Err()).To(MatchBackendError(errs.ErrNoSeats))

			_, err := h.st.Selections.FindByID(ctx(), fullSel.ID)
			Expect(err).To(BeNil())
			list, err := h.st.Enrollments.ListByEmail(ctx(), "student@test.test")
			Expect(err).To(BeNil())
			Expect(list).To(BeEmpty())
		})

		Specify("sad path - someone else's selection", func() {
			other := h.user("other@test.test", entity.RoleNone)

			res := h.do(http.MethodPost, "/enrolled", other, request())
			Expect(res.Status).To(Equal(http.StatusForbidden))
		})

		Specify("sad path - malformed body", func() {
			res := h.do(http.MethodPost, "/enrolled", student, map[string]interface{}{"price": "free"})
			Expect(res.Status).To(Equal(http.StatusBadRequest))
		})

		Specify("sad path - another user's enrollments", func() {
			res := h.do(http.MethodGet, "/enrolled/other@test.test", student, nil)
			Expect(res.Status).To(Equal(http.StatusForbidden))
		})
	})
})
