package int

import (
	"context"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"sporty-backend/entity"
	"sporty-backend/errs"
	. "sporty-backend/internal/testmatch"
	"sporty-backend/store"
)

var _ = Describe("Enrollment", func() {
	var (
		s          *server
		admin      User
		instructor User
		student    User
	)

	BeforeEach(func() {
		s = newServer()
		admin = s.registerUser("admin@test.test", entity.RoleAdmin)
		instructor = s.registerUser("ina@test.test", entity.RoleInstructor)
		student = s.registerUser("student@test.test", entity.RoleNone)
	})

	AfterEach(func() {
		s.Close()
	})

	openClass := func(seats int64) primitive.ObjectID {
		By("Create Class")
		res := s.do(http.MethodPost, "/classes", instructor.AccessToken, map[string]interface{}{
			"name":           "Yoga",
			"price":          20,
			"availableSeats": seats,
		})
		Expect(res.Status).To(Equal(http.StatusOK))
		var ins store.InsertResult
		res.JSON(&ins)

		By("Approve Class")
		res = s.do(http.MethodPut, "/classes/approved/"+ins.InsertedID.Hex(), admin.AccessToken, nil)
		Expect(res.Status).To(Equal(http.StatusOK))
		return ins.InsertedID
	}

	selectClass := func(u User, class primitive.ObjectID) entity.Selection {
		By("Select Class")
		res := s.do(http.MethodPost, "/classes/selected", u.AccessToken, map[string]string{"classId": class.Hex()})
		Expect(res.Status).To(Equal(http.StatusOK))
		var ins store.InsertResult
		res.JSON(&ins)

		sel, err := s.st.Selections.FindByID(context.Background(), ins.InsertedID)
		Expect(err).To(BeNil())
		return *sel
	}

	enroll := func(u User, sel entity.Selection) *response {
		return s.do(http.MethodPost, "/enrolled", u.AccessToken, map[string]interface{}{
			"transactionId": "pi_" + sel.ID.Hex(),
			"price":         sel.Price,
			"enrolledClass": entity.EnrolledClass{ID: sel.ID, ClassSnapshot: sel.ClassSnapshot},
		})
	}

	Specify("happy path", func() {
		class := openClass(5)
		sel := selectClass(student, class)

		res := enroll(student, sel)
		Expect(res.Status).To(Equal(http.StatusOK), string(res.Body))

		c, err := s.st.Classes.FindByID(context.Background(), class)
		Expect(err).To(BeNil())
		Expect(c.AvailableSeats).To(Equal(int64(4)))
		Expect(c.NumberOfStudents).To(Equal(int64(1)))

		res = s.do(http.MethodGet, "/enrolled/student@test.test", student.AccessToken, nil)
		var list []entity.Enrollment
		res.JSON(&list)
		Expect(list).To(HaveLen(1))
		Expect(list[0].EnrolledClass.ClassID).To(Equal(class))

		res = s.do(http.MethodGet, "/classes/selected/student@test.test", student.AccessToken, nil)
		var selections []entity.Selection
		res.JSON(&selections)
		Expect(selections).To(BeEmpty())
	})

	Specify("sad path - paying twice", func() {
		class := openClass(5)
		sel := selectClass(student, class)
		Expect(enroll(student, sel).Status).To(Equal(http.StatusOK))

		res := enroll(student, sel)
		Expect(res.Status).To(Equal(http.StatusConflict))
		Expect(res.Err()).To(MatchBackendError(errs.ErrSelectionConsumed))
	})

	Specify("the last seat goes to exactly one student", func() {
		class := openClass(1)
		other := s.registerUser("other@test.test", entity.RoleNone)
		sels := []entity.Selection{selectClass(student, class), selectClass(other, class)}
		users := []User{student, other}

		statuses := make([]int, 2)
		var wg sync.WaitGroup
		for i := range users {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				statuses[i] = enroll(users[i], sels[i]).Status
			}(i)
		}
		wg.Wait()

		Expect(statuses).To(ConsistOf(http.StatusOK, http.StatusConflict))

		c, err := s.st.Classes.FindByID(context.Background(), class)
		Expect(err).To(BeNil())
		Expect(c.AvailableSeats).To(BeZero())
		Expect(c.NumberOfStudents).To(Equal(int64(1)))

		var left int
		for _, u := range users {
			list, err := s.st.Selections.ListByUser(context.Background(), u.Email)
			Expect(err).To(BeNil())
			left += len(list)
		}
		Expect(left).To(Equal(1))
	})

	Specify("popular reports", func() {
		class := openClass(5)
		Expect(enroll(student, selectClass(student, class)).Status).To(Equal(http.StatusOK))

		res := s.do(http.MethodGet, "/popular-classes", "", nil)
		var classes []entity.Class
		res.JSON(&classes)
		Expect(classes).To(HaveLen(1))
		Expect(classes[0].NumberOfStudents).To(Equal(int64(1)))

		res = s.do(http.MethodGet, "/instructors/popular", "", nil)
		var rows []entity.PopularInstructor
		res.JSON(&rows)
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].Email).To(Equal("ina@test.test"))
		Expect(rows[0].NumberOfStudents).To(Equal(int64(1)))
		Expect(rows[0].NumberOfClasses).To(Equal(int64(1)))
		Expect(rows[0].Classes).To(Equal("Yoga"))
	})
})
