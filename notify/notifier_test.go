package notify

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sporty-backend/events"
)

type fakeMailer struct {
	lock sync.Mutex
	sent []Mail
}

func (f *fakeMailer) Send(_ context.Context, m Mail) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

// Subjects lists "to: subject" for every mail sent so far.
func (f *fakeMailer) Subjects() []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.To+": "+m.Subject)
	}
	return out
}

var _ = Describe("Notifier", func() {
	var (
		bus    *events.Local
		mailer *fakeMailer
		cancel context.CancelFunc
		done   chan error
	)

	BeforeEach(func() {
		bus = events.NewLocal()
		mailer = &fakeMailer{}
		done = make(chan error, 1)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		n := NewNotifier(bus, mailer)
		go func() { done <- n.Run(ctx) }()

		Eventually(bus.Subscribers).Should(Equal(2))
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	Specify("sends a receipt for an enrollment", func() {
		err := bus.PublishEnrollment(context.Background(), &events.EnrollmentEvent{
			Email:         "alice@test.test",
			ClassName:     "Climbing",
			TransactionID: "pi_1",
			Price:         25,
			At:            time.Now(),
		})
		Expect(err).To(BeNil())

		Eventually(mailer.Subjects).Should(ContainElement("alice@test.test: You are enrolled in Climbing"))
	})

	Specify("tells the instructor about a review", func() {
		err := bus.PublishClass(context.Background(), &events.ClassEvent{
			Type:            events.ClassFeedback,
			ClassName:       "Climbing",
			InstructorEmail: "ina@test.test",
			Feedback:        "needs a photo",
		})
		Expect(err).To(BeNil())

		Eventually(mailer.Subjects).Should(ContainElement("ina@test.test: Feedback on Climbing"))
		Expect(review(&events.ClassEvent{Type: events.ClassFeedback, Feedback: "needs a photo"}).Text).
			To(ContainSubstring("needs a photo"))
	})
})
