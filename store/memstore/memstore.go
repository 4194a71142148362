// Package memstore keeps every collection in process memory. It backs the
// unit tests and STORE=memory local runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/store"
)

type state struct {
	users       []entity.User
	classes     []entity.Class
	selections  []entity.Selection
	enrollments []entity.Enrollment
}

func (s *state) clone() state {
	return state{
		users:       append([]entity.User(nil), s.users...),
		classes:     append([]entity.Class(nil), s.classes...),
		selections:  append([]entity.Selection(nil), s.selections...),
		enrollments: append([]entity.Enrollment(nil), s.enrollments...),
	}
}

// Memory is safe for concurrent use. A transaction holds the write lock for
// its whole run, so writes from outside it wait until it commits or rolls
// back. Rollback restores the snapshot taken when the transaction began.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data state
}

func New() *Memory {
	return &Memory{}
}

func (m *Memory) Store() *store.Store {
	return &store.Store{
		Users:       users{m},
		Classes:     classes{m},
		Selections:  selections{m},
		Enrollments: enrollments{m},
		Tx:          m,
		Ping:        func(context.Context) error { return nil },
		Close:       func(context.Context) error { return nil },
	}
}

type txKey struct{}

func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, m)); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// Atomic reports that rollback undoes every write made inside fn.
func (m *Memory) Atomic() bool { return true }

// writing takes the write lock unless ctx belongs to a transaction of m,
// which already holds it. The returned func releases it.
func (m *Memory) writing(ctx context.Context) func() {
	if ctx.Value(txKey{}) == m {
		return func() {}
	}
	m.txMu.Lock()
	return m.txMu.Unlock
}

// Seed inserts documents directly, assigning ids where missing.
func (m *Memory) Seed(users []entity.User, classes []entity.Class, selections []entity.Selection) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		u.Normalize()
		m.data.users = append(m.data.users, u)
	}
	for _, c := range classes {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		m.data.classes = append(m.data.classes, c)
	}
	for _, s := range selections {
		if s.ID.IsZero() {
			s.ID = primitive.NewObjectID()
		}
		m.data.selections = append(m.data.selections, s)
	}
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDatabase, err)
	}
	return nil
}

type users struct{ m *Memory }

func (u users) List(ctx context.Context) ([]entity.User, error) {
	return u.filter(ctx, func(entity.User) bool { return true })
}

func (u users) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	return u.filter(ctx, func(x entity.User) bool { return x.Role == role })
}

func (u users) filter(ctx context.Context, keep func(entity.User) bool) ([]entity.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	out := []entity.User{}
	for _, x := range u.m.data.users {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out, nil
}

func (u users) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	for _, x := range u.m.data.users {
		if x.Email == email {
			return &x, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (u users) InsertIfMissing(ctx context.Context, user *entity.User) (*store.InsertResult, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, false, err
	}
	defer u.m.writing(ctx)()
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	for _, x := range u.m.data.users {
		if x.Email == user.Email {
			return nil, false, nil
		}
	}

	user.Normalize()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u.m.data.users = append(u.m.data.users, *user)
	return &store.InsertResult{InsertedID: user.ID}, true, nil
}

func (u users) SetRole(ctx context.Context, id primitive.ObjectID, role entity.Role) (*store.UpdateResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer u.m.writing(ctx)()
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	for i := range u.m.data.users {
		if u.m.data.users[i].ID != id {
			continue
		}
		res := &store.UpdateResult{MatchedCount: 1}
		if u.m.data.users[i].Role != role {
			u.m.data.users[i].Role = role
			res.ModifiedCount = 1
		}
		return res, nil
	}
	return &store.UpdateResult{}, nil
}

func (u users) PopularInstructors(ctx context.Context, limit int) ([]entity.PopularInstructor, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	out := []entity.PopularInstructor{}
	for _, x := range u.m.data.users {
		if x.Role != entity.RoleInstructor {
			continue
		}

		row := entity.PopularInstructor{Name: x.Name, Email: x.Email, PhotoURL: x.PhotoURL}
		for _, c := range u.m.data.classes {
			if c.InstructorEmail != x.Email {
				continue
			}
			if row.NumberOfClasses == 0 {
				row.Classes = c.Name
			}
			row.NumberOfClasses++
			row.NumberOfStudents += c.NumberOfStudents
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NumberOfStudents != out[j].NumberOfStudents {
			return out[i].NumberOfStudents > out[j].NumberOfStudents
		}
		return out[i].Email < out[j].Email
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type classes struct{ m *Memory }

func (c classes) List(ctx context.Context) ([]entity.Class, error) {
	return c.filter(ctx, func(entity.Class) bool { return true })
}

func (c classes) ListByStatus(ctx context.Context, status entity.ClassStatus) ([]entity.Class, error) {
	return c.filter(ctx, func(x entity.Class) bool { return x.Status == status })
}

func (c classes) ListByInstructor(ctx context.Context, email string) ([]entity.Class, error) {
	return c.filter(ctx, func(x entity.Class) bool { return x.InstructorEmail == email })
}

func (c classes) filter(ctx context.Context, keep func(entity.Class) bool) ([]entity.Class, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	out := []entity.Class{}
	for _, x := range c.m.data.classes {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out, nil
}

func (c classes) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Class, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	for _, x := range c.m.data.classes {
		if x.ID == id {
			return &x, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (c classes) Insert(ctx context.Context, class *entity.Class) (*store.InsertResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer c.m.writing(ctx)()
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	if class.Status == "" {
		class.Status = entity.StatusPending
	}
	c.m.data.classes = append(c.m.data.classes, *class)
	return &store.InsertResult{InsertedID: class.ID}, nil
}

func (c classes) update(ctx context.Context, id primitive.ObjectID, filter func(*entity.Class) bool, apply func(*entity.Class) bool) (*store.UpdateResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer c.m.writing(ctx)()
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	for i := range c.m.data.classes {
		x := &c.m.data.classes[i]
		if x.ID != id || (filter != nil && !filter(x)) {
			continue
		}
		res := &store.UpdateResult{MatchedCount: 1}
		if apply(x) {
			res.ModifiedCount = 1
		}
		return res, nil
	}
	return &store.UpdateResult{}, nil
}

func (c classes) SetStatus(ctx context.Context, id primitive.ObjectID, status entity.ClassStatus) (*store.UpdateResult, error) {
	return c.update(ctx, id, nil, func(x *entity.Class) bool {
		changed := x.Status != status
		x.Status = status
		return changed
	})
}

func (c classes) SetFeedback(ctx context.Context, id primitive.ObjectID, feedback string) (*store.UpdateResult, error) {
	return c.update(ctx, id, nil, func(x *entity.Class) bool {
		changed := x.Feedback != feedback
		x.Feedback = feedback
		return changed
	})
}

func (c classes) TakeSeat(ctx context.Context, id primitive.ObjectID, guard bool) (*store.UpdateResult, error) {
	var filter func(*entity.Class) bool
	if guard {
		filter = func(x *entity.Class) bool { return x.AvailableSeats > 0 }
	}

	return c.update(ctx, id, filter, func(x *entity.Class) bool {
		x.AvailableSeats--
		x.NumberOfStudents++
		return true
	})
}

func (c classes) Popular(ctx context.Context, limit int) ([]entity.Class, error) {
	out, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NumberOfStudents != out[j].NumberOfStudents {
			return out[i].NumberOfStudents > out[j].NumberOfStudents
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type selections struct{ m *Memory }

func (s selections) Insert(ctx context.Context, sel *entity.Selection) (*store.InsertResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer s.m.writing(ctx)()
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if sel.ID.IsZero() {
		sel.ID = primitive.NewObjectID()
	}
	s.m.data.selections = append(s.m.data.selections, *sel)
	return &store.InsertResult{InsertedID: sel.ID}, nil
}

func (s selections) ListByUser(ctx context.Context, email string) ([]entity.Selection, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := []entity.Selection{}
	for _, x := range s.m.data.selections {
		if x.UserEmail == email {
			out = append(out, x)
		}
	}
	return out, nil
}

func (s selections) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Selection, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, x := range s.m.data.selections {
		if x.ID == id {
			return &x, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s selections) Delete(ctx context.Context, id primitive.ObjectID) (*store.DeleteResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer s.m.writing(ctx)()
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for i, x := range s.m.data.selections {
		if x.ID == id {
			s.m.data.selections = append(s.m.data.selections[:i:i], s.m.data.selections[i+1:]...)
			return &store.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &store.DeleteResult{}, nil
}

type enrollments struct{ m *Memory }

func (e enrollments) Insert(ctx context.Context, en *entity.Enrollment) (*store.InsertResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	defer e.m.writing(ctx)()
	e.m.mu.Lock()
	defer e.m.mu.Unlock()

	for _, x := range e.m.data.enrollments {
		if x.EnrolledClass.ID == en.EnrolledClass.ID {
			return nil, fmt.Errorf("%w: enrollment for selection %s", errs.ErrAlreadyExists, en.EnrolledClass.ID.Hex())
		}
	}

	if en.ID.IsZero() {
		en.ID = primitive.NewObjectID()
	}
	e.m.data.enrollments = append(e.m.data.enrollments, *en)
	return &store.InsertResult{InsertedID: en.ID}, nil
}

func (e enrollments) ListByEmail(ctx context.Context, email string) ([]entity.Enrollment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	e.m.mu.Lock()
	defer e.m.mu.Unlock()

	out := []entity.Enrollment{}
	for _, x := range e.m.data.enrollments {
		if x.Email == email {
			out = append(out, x)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
