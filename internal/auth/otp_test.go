package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	otpDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/otp"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock OtpRepository keyed by (email, purpose)
type mockOtpRepository struct {
	records     map[string]*otpDatamodel.Code
	upsertErr   error
	deleteErr   error
	consumeFail bool
}

func newMockOtpRepository() *mockOtpRepository {
	return &mockOtpRepository{records: make(map[string]*otpDatamodel.Code)}
}

func otpKey(email, purpose string) string {
	return email + "|" + purpose
}

func (m *mockOtpRepository) Upsert(_ context.Context, record *otpDatamodel.Code) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	copied := *record
	m.records[otpKey(record.Email, record.Purpose)] = &copied
	return nil
}

func (m *mockOtpRepository) Get(_ context.Context, email, purpose string) (*otpDatamodel.Code, error) {
	rec, ok := m.records[otpKey(email, purpose)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *mockOtpRepository) Consume(_ context.Context, email, purpose, code string) (bool, error) {
	if m.consumeFail {
		return false, nil
	}
	rec, ok := m.records[otpKey(email, purpose)]
	if !ok || rec.ConsumedAt != nil || rec.Code != code {
		return false, nil
	}
	now := time.Now()
	rec.ConsumedAt = &now
	return true, nil
}

func (m *mockOtpRepository) Delete(_ context.Context, email, purpose string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.records, otpKey(email, purpose))
	return nil
}

// Mock Dispatcher capturing sent mail
type mockDispatcher struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *mockDispatcher) Send(_ context.Context, to, subject, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *mockDispatcher) Enqueue(to, subject, body string) {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
}

var _ = ginkgo.Describe("OtpManager", func() {
	var (
		manager    *OtpManager
		repo       *mockOtpRepository
		dispatcher *mockDispatcher
		ctx        context.Context
		ttls       internal.OtpConfig
	)

	ginkgo.BeforeEach(func() {
		repo = newMockOtpRepository()
		dispatcher = &mockDispatcher{}
		ctx = context.Background()
		ttls = internal.OtpConfig{
			LoginTTL:         2 * time.Minute,
			RegisterTTL:      5 * time.Minute,
			PasswordResetTTL: 5 * time.Minute,
			InvitationTTL:    72 * time.Hour,
		}
		manager = NewOtpManager(repo, dispatcher, ttls, logger.LoggerWrapper())
	})

	ginkgo.Describe("Issue", func() {
		ginkgo.It("stores a six digit code and mails it", func() {
			code, err := manager.Issue(ctx, "user@example.com", PurposeLogin)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(code).To(gomega.HaveLen(6))
			n, convErr := strconv.Atoi(code)
			gomega.Expect(convErr).ToNot(gomega.HaveOccurred())
			gomega.Expect(n).To(gomega.BeNumerically(">=", 100000))
			gomega.Expect(n).To(gomega.BeNumerically("<=", 999999))

			gomega.Expect(dispatcher.sent).To(gomega.HaveLen(1))
			gomega.Expect(dispatcher.sent[0].To).To(gomega.Equal("user@example.com"))
			gomega.Expect(dispatcher.sent[0].Body).To(gomega.ContainSubstring(code))

			rec, _ := repo.Get(ctx, "user@example.com", string(PurposeLogin))
			gomega.Expect(rec).ToNot(gomega.BeNil())
			gomega.Expect(rec.Code).To(gomega.Equal(code))
		})

		ginkgo.It("applies the purpose specific TTL", func() {
			before := time.Now()
			_, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rec, _ := repo.Get(ctx, "user@example.com", string(PurposeLogin))
			gomega.Expect(rec.ExpiresAt).To(gomega.BeTemporally("~", before.Add(ttls.LoginTTL), time.Second))

			_, err = manager.Issue(ctx, "user@example.com", PurposeRegister)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rec, _ = repo.Get(ctx, "user@example.com", string(PurposeRegister))
			gomega.Expect(rec.ExpiresAt).To(gomega.BeTemporally("~", before.Add(ttls.RegisterTTL), time.Second))
		})

		ginkgo.It("overwrites the pending code on reissue", func() {
			first, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			if first != second {
				err = manager.Verify(ctx, "user@example.com", PurposeLogin, first)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpMismatch))
			}

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, second)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("rolls back the record when dispatch fails", func() {
			dispatcher.sendErr = errors.New("provider unavailable")

			_, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).To(gomega.HaveOccurred())

			rec, _ := repo.Get(ctx, "user@example.com", string(PurposeLogin))
			gomega.Expect(rec).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Verify", func() {
		ginkgo.It("returns not requested when no code exists", func() {
			err := manager.Verify(ctx, "nobody@example.com", PurposeLogin, "123456")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpNotRequested))
		})

		ginkgo.It("returns expired for a stale code before checking the value", func() {
			repo.records[otpKey("user@example.com", string(PurposeLogin))] = &otpDatamodel.Code{
				Email:     "user@example.com",
				Purpose:   string(PurposeLogin),
				Code:      "123456",
				ExpiresAt: time.Now().Add(-time.Minute),
			}

			// even the correct code reports expiry
			err := manager.Verify(ctx, "user@example.com", PurposeLogin, "123456")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpExpired))

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, "000000")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpExpired))
		})

		ginkgo.It("returns mismatch for a wrong code and keeps the record live", func() {
			code, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			wrong := "000000"
			if wrong == code {
				wrong = "000001"
			}
			err = manager.Verify(ctx, "user@example.com", PurposeLogin, wrong)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpMismatch))

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, code)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("consumes the code exactly once", func() {
			code, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, code)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, code)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpNotRequested))
		})

		ginkgo.It("treats a lost consume race as not requested", func() {
			code, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			repo.consumeFail = true
			err = manager.Verify(ctx, "user@example.com", PurposeLogin, code)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpNotRequested))
		})

		ginkgo.It("keeps purposes isolated for the same email", func() {
			loginCode, err := manager.Issue(ctx, "user@example.com", PurposeLogin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = manager.Issue(ctx, "user@example.com", PurposeRegister)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = manager.Verify(ctx, "user@example.com", PurposeLogin, loginCode)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// the register code is untouched by consuming the login code
			rec, _ := repo.Get(ctx, "user@example.com", string(PurposeRegister))
			gomega.Expect(rec.ConsumedAt).To(gomega.BeNil())
		})
	})
})
