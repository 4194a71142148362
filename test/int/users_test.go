package int

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson"
	"sporty-backend/entity"
	"sporty-backend/errs"
	. "sporty-backend/internal/testmatch"
	"sporty-backend/jwt"
	"sporty-backend/store/mongostore"
)

var _ = Describe("Users", func() {
	var s *server

	BeforeEach(func() {
		s = newServer()
	})

	AfterEach(func() {
		s.Close()
	})

	Specify("create is idempotent", func() {
		s.registerUser("a@test.test", entity.RoleNone)

		res := s.do(http.MethodPost, "/users", "", map[string]string{"email": "a@test.test", "name": "other"})
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(string(res.Body)).To(ContainSubstring("user already exists"))

		n, err := db.Database().Collection(mongostore.UsersCollection).CountDocuments(context.Background(), bson.M{"email": "a@test.test"})
		Expect(err).To(BeNil())
		Expect(n).To(Equal(int64(1)))
	})

	Specify("documents without a role are treated as none", func() {
		_, err := db.Database().Collection(mongostore.UsersCollection).InsertOne(context.Background(), bson.M{"email": "legacy@test.test", "name": "Legacy"})
		Expect(err).To(BeNil())

		res := s.do(http.MethodGet, "/users/legacy@test.test", "", nil)
		var u entity.User
		res.JSON(&u)
		Expect(u.Role).To(Equal(entity.RoleNone))

		t, err := s.tokens.Issue(jwt.Claims{Email: "legacy@test.test"})
		Expect(err).To(BeNil())
		res = s.do(http.MethodGet, "/users", t, nil)
		Expect(res.Status).To(Equal(http.StatusForbidden))
		Expect(res.Err()).To(MatchBackendError(errs.ErrForbidden))
	})

	Specify("promotion takes effect without a new token", func() {
		admin := s.registerUser("admin@test.test", entity.RoleAdmin)
		user := s.registerUser("ina@test.test", entity.RoleNone)

		res := s.do(http.MethodPost, "/classes", user.AccessToken, map[string]interface{}{"name": "Yoga"})
		Expect(res.Status).To(Equal(http.StatusForbidden))

		u, err := s.st.Users.FindByEmail(context.Background(), "ina@test.test")
		Expect(err).To(BeNil())
		res = s.do(http.MethodPatch, "/users/instructor/"+u.ID.Hex(), admin.AccessToken, nil)
		Expect(res.Status).To(Equal(http.StatusOK))

		res = s.do(http.MethodPost, "/classes", user.AccessToken, map[string]interface{}{"name": "Yoga"})
		Expect(res.Status).To(Equal(http.StatusOK))
	})
})
