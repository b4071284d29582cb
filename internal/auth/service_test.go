package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

// Mock UserRepository backed by maps
type mockUserRepository struct {
	byEmail map[string]*userDatamodel.User
	byID    map[int64]*userDatamodel.User
	nextID  int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byEmail: make(map[string]*userDatamodel.User),
		byID:    make(map[int64]*userDatamodel.User),
		nextID:  1,
	}
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepository) Create(_ context.Context, u *userDatamodel.User) error {
	u.ID = m.nextID
	m.nextID++
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepository) MarkVerified(_ context.Context, email string) error {
	if u, ok := m.byEmail[email]; ok {
		u.IsVerified = true
	}
	return nil
}

func (m *mockUserRepository) UpdatePassword(_ context.Context, email, passwordHash string) error {
	if u, ok := m.byEmail[email]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type mockResolver struct {
	permissions map[int64][]string
}

func (m *mockResolver) ResolvePermissions(_ context.Context, userID int64) ([]string, error) {
	return m.permissions[userID], nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service    *Service
		userRepo   *mockUserRepository
		otpRepo    *mockOtpRepository
		dispatcher *mockDispatcher
		resolver   *mockResolver
		ctx        context.Context
	)

	issuedCode := func(email string, purpose Purpose) string {
		rec, err := otpRepo.Get(ctx, email, string(purpose))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(rec).ToNot(gomega.BeNil())
		return rec.Code
	}

	seedUser := func(email, password string, verified, active bool) *userDatamodel.User {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		u := &userDatamodel.User{
			Email:        email,
			Name:         "Test User",
			PasswordHash: string(hash),
			IsVerified:   verified,
			IsActive:     active,
		}
		gomega.Expect(userRepo.Create(ctx, u)).To(gomega.Succeed())
		return u
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		userRepo = newMockUserRepository()
		otpRepo = newMockOtpRepository()
		dispatcher = &mockDispatcher{}
		resolver = &mockResolver{permissions: make(map[int64][]string)}

		otpManager := NewOtpManager(otpRepo, dispatcher, internal.OtpConfig{
			LoginTTL:         2 * time.Minute,
			RegisterTTL:      5 * time.Minute,
			PasswordResetTTL: 5 * time.Minute,
		}, logger.LoggerWrapper())
		tokenGen := NewJWTTokenGenerator(
			"test-access-secret-test-access-secret",
			"test-refresh-secret-test-refresh-secret",
			15*time.Minute,
			24*time.Hour,
		)
		service = NewService(userRepo, otpManager, resolver, tokenGen, bcrypt.MinCost, logger.LoggerWrapper())
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("creates an unverified user and mails a code", func() {
			err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Name:     "New User",
				Password: "secret-password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			u, _ := userRepo.GetByEmail(ctx, "new@example.com")
			gomega.Expect(u).ToNot(gomega.BeNil())
			gomega.Expect(u.IsVerified).To(gomega.BeFalse())
			gomega.Expect(dispatcher.sent).To(gomega.HaveLen(1))
		})

		ginkgo.It("rejects an already registered email", func() {
			seedUser("taken@example.com", "pw-irrelevant", true, true)

			err := service.Register(ctx, RegisterDTO{
				Email:    "taken@example.com",
				Name:     "Someone",
				Password: "secret-password",
			})

			gomega.Expect(err).To(gomega.MatchError(ErrEmailTaken))
		})
	})

	ginkgo.Describe("VerifyRegistration", func() {
		ginkgo.It("flips the user to verified on the right code", func() {
			gomega.Expect(service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Name:     "New User",
				Password: "secret-password",
			})).To(gomega.Succeed())

			code := issuedCode("new@example.com", PurposeRegister)
			err := service.VerifyRegistration(ctx, VerifyOtpDTO{Email: "new@example.com", Code: code})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			u, _ := userRepo.GetByEmail(ctx, "new@example.com")
			gomega.Expect(u.IsVerified).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("rejects a wrong password", func() {
			seedUser("user@example.com", "correct-password", true, true)

			err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "wrong"})
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unknown email the same way as a wrong password", func() {
			err := service.Login(ctx, LoginDTO{Email: "ghost@example.com", Password: "whatever"})
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unverified account", func() {
			seedUser("pending@example.com", "correct-password", false, true)

			err := service.Login(ctx, LoginDTO{Email: "pending@example.com", Password: "correct-password"})
			gomega.Expect(err).To(gomega.MatchError(ErrUserNotVerified))
		})

		ginkgo.It("rejects a deactivated account", func() {
			seedUser("gone@example.com", "correct-password", true, false)

			err := service.Login(ctx, LoginDTO{Email: "gone@example.com", Password: "correct-password"})
			gomega.Expect(err).To(gomega.MatchError(ErrUserInactive))
		})

		ginkgo.It("mails a login code without returning tokens", func() {
			seedUser("user@example.com", "correct-password", true, true)

			err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct-password"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(dispatcher.sent).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("VerifyLogin", func() {
		ginkgo.It("mints a distinct access and refresh token pair", func() {
			seedUser("user@example.com", "correct-password", true, true)
			gomega.Expect(service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct-password"})).To(gomega.Succeed())

			code := issuedCode("user@example.com", PurposeLogin)
			tokens, err := service.VerifyLogin(ctx, VerifyOtpDTO{Email: "user@example.com", Code: code})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
		})

		ginkgo.It("produces an access token that validates to the user", func() {
			u := seedUser("user@example.com", "correct-password", true, true)
			gomega.Expect(service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct-password"})).To(gomega.Succeed())

			code := issuedCode("user@example.com", PurposeLogin)
			tokens, err := service.VerifyLogin(ctx, VerifyOtpDTO{Email: "user@example.com", Code: code})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(strconv.FormatInt(u.ID, 10)))
			gomega.Expect(claims.Email).To(gomega.Equal("user@example.com"))
		})

		ginkgo.It("rejects a reused login code", func() {
			seedUser("user@example.com", "correct-password", true, true)
			gomega.Expect(service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct-password"})).To(gomega.Succeed())

			code := issuedCode("user@example.com", PurposeLogin)
			_, err := service.VerifyLogin(ctx, VerifyOtpDTO{Email: "user@example.com", Code: code})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.VerifyLogin(ctx, VerifyOtpDTO{Email: "user@example.com", Code: code})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOtpNotRequested))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("exchanges a refresh token for a new pair", func() {
			seedUser("user@example.com", "correct-password", true, true)
			gomega.Expect(service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct-password"})).To(gomega.Succeed())

			code := issuedCode("user@example.com", PurposeLogin)
			tokens, err := service.VerifyLogin(ctx, VerifyOtpDTO{Email: "user@example.com", Code: code})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(refreshed.RefreshToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("rejects garbage", func() {
			_, err := service.RefreshTokens("not-a-token")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ForgotPassword", func() {
		ginkgo.It("reports success for unknown emails without mailing", func() {
			err := service.ForgotPassword(ctx, ForgotPasswordDTO{Email: "ghost@example.com"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(dispatcher.sent).To(gomega.BeEmpty())
		})

		ginkgo.It("mails a reset code for known emails", func() {
			seedUser("user@example.com", "correct-password", true, true)

			err := service.ForgotPassword(ctx, ForgotPasswordDTO{Email: "user@example.com"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(dispatcher.sent).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("ResetPassword", func() {
		ginkgo.It("updates the password after code verification", func() {
			seedUser("user@example.com", "old-password", true, true)
			gomega.Expect(service.ForgotPassword(ctx, ForgotPasswordDTO{Email: "user@example.com"})).To(gomega.Succeed())

			code := issuedCode("user@example.com", PurposePasswordReset)
			err := service.ResetPassword(ctx, ResetPasswordDTO{
				Email:       "user@example.com",
				Code:        code,
				NewPassword: "brand-new-password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "old-password"})
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))

			err = service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "brand-new-password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetUserWithPermissions", func() {
		ginkgo.It("returns the user with the resolved permission set", func() {
			u := seedUser("user@example.com", "correct-password", true, true)
			resolver.permissions[u.ID] = []string{"VIEW_PROJECT", "CREATE_TASK"}

			loaded, err := service.GetUserWithPermissions(ctx, u.ID)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(loaded.Email).To(gomega.Equal("user@example.com"))
			gomega.Expect(loaded.Permissions).To(gomega.ConsistOf("VIEW_PROJECT", "CREATE_TASK"))
			gomega.Expect(loaded.HasPermission("VIEW_PROJECT")).To(gomega.BeTrue())
			gomega.Expect(loaded.HasPermission("DELETE_PROJECT")).To(gomega.BeFalse())
		})

		ginkgo.It("rejects deactivated users", func() {
			u := seedUser("gone@example.com", "correct-password", true, false)

			_, err := service.GetUserWithPermissions(ctx, u.ID)
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})
	})
})
