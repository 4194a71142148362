package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/events"
	"sporty-backend/log"
	"sporty-backend/store"
)

const publishTimeout = 5 * time.Second

type classHandler struct {
	classes  store.Classes
	users    store.Users
	events   events.Publisher
	sanitize *bluemonday.Policy
}

func newClassHandler(classes store.Classes, users store.Users, pub events.Publisher, p *bluemonday.Policy) *classHandler {
	return &classHandler{classes: classes, users: users, events: pub, sanitize: p}
}

type createClassRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Image          string  `json:"image" validate:"omitempty,url,max=2048"`
	InstructorName string  `json:"instructorName" validate:"max=200"`
	Price          float64 `json:"price" validate:"gte=0"`
	AvailableSeats int64   `json:"availableSeats"`
}

type feedbackRequest struct {
	InputValue string `json:"inputValue" validate:"max=5000"`
}

func (h *classHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, classes)
}

func (h *classHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.ListByStatus(r.Context(), entity.StatusApproved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, classes)
}

func (h *classHandler) Popular(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.Popular(r.Context(), store.PopularLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, classes)
}

// ListByInstructor only shows instructors their own classes.
func (h *classHandler) ListByInstructor(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if identity(r).Email() != email {
		writeError(w, r, errs.ErrForbidden)
		return
	}

	classes, err := h.classes.ListByInstructor(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, classes)
}

// Create files a class for review. The instructor is whoever is signed in
// and the class always starts pending.
func (h *classHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.AvailableSeats < 0 {
		writeError(w, r, errs.ErrInvalidSeats)
		return
	}

	email := identity(r).Email()
	instructorName := h.sanitize.Sanitize(req.InstructorName)
	if instructorName == "" {
		if u, err := h.users.FindByEmail(r.Context(), email); err == nil {
			instructorName = u.Name
		}
	}

	c := &entity.Class{
		Name:            h.sanitize.Sanitize(req.Name),
		Image:           req.Image,
		InstructorName:  instructorName,
		InstructorEmail: email,
		Price:           req.Price,
		AvailableSeats:  req.AvailableSeats,
		Status:          entity.StatusPending,
	}
	res, err := h.classes.Insert(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (h *classHandler) SetStatus(status entity.ClassStatus) http.HandlerFunc {
	typ := events.ClassApproved
	if status == entity.StatusDenied {
		typ = events.ClassDenied
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := objectID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		res, err := h.classes.SetStatus(r.Context(), id, status)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if res.ModifiedCount > 0 {
			h.publish(r.Context(), id, &events.ClassEvent{Type: typ})
		}
		ok(w, res)
	}
}

func (h *classHandler) SetFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req feedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	feedback := h.sanitize.Sanitize(req.InputValue)
	res, err := h.classes.SetFeedback(r.Context(), id, feedback)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.ModifiedCount > 0 {
		h.publish(r.Context(), id, &events.ClassEvent{Type: events.ClassFeedback, Feedback: feedback})
	}
	ok(w, res)
}

// publish fills in the class details and sends the event. Failures are
// logged; the change itself already happened.
func (h *classHandler) publish(ctx context.Context, id primitive.ObjectID, ev *events.ClassEvent) {
	if h.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	c, err := h.classes.FindByID(ctx, id)
	if err != nil {
		log.Logger.Warn("unable to load class for event", zap.Error(err), zap.String("class", id.Hex()))
		return
	}

	ev.ClassID = c.ID
	ev.ClassName = c.Name
	ev.InstructorEmail = c.InstructorEmail
	ev.At = time.Now()
	if err := h.events.PublishClass(ctx, ev); err != nil {
		log.Logger.Warn("unable to publish class event", zap.Error(err), zap.String("class", id.Hex()))
	}
}
