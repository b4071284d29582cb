package auth

import (
	"context"
	"log/slog"
	"strconv"

	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the persistence surface the auth flows need. The full
// user domain lives in internal/user; this keeps auth on its own narrow view.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// PermissionResolver answers the role→permission traversal; implemented by
// the rbac service.
type PermissionResolver interface {
	ResolvePermissions(ctx context.Context, userID int64) ([]string, error)
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) error
	VerifyRegistration(ctx context.Context, dto VerifyOtpDTO) error
	Login(ctx context.Context, dto LoginDTO) error
	VerifyLogin(ctx context.Context, dto VerifyOtpDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	GetUserWithPermissions(ctx context.Context, userID int64) (*User, error)
}

type Service struct {
	userRepo       UserRepository
	otp            *OtpManager
	resolver       PermissionResolver
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(userRepo UserRepository, otp *OtpManager, resolver PermissionResolver, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		otp:            otp,
		resolver:       resolver,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Register creates an unverified user and mails a registration code.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	existing, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return err
	}

	u := &userDatamodel.User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		Mobile:       dto.Mobile,
		IsVerified:   false,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return err
	}

	if _, err := s.otp.Issue(ctx, dto.Email, PurposeRegister); err != nil {
		s.logger.Error("registration otp issue failed", "error", err, "email", dto.Email)
		return err
	}

	s.logger.Info("user registered, verification code sent", "user_id", u.ID, "email", dto.Email)
	return nil
}

// VerifyRegistration consumes the registration code and flips the user to
// verified. A user cannot complete login until this happened.
func (s *Service) VerifyRegistration(ctx context.Context, dto VerifyOtpDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, dto.Email, PurposeRegister, dto.Code); err != nil {
		return err
	}

	if err := s.userRepo.MarkVerified(ctx, dto.Email); err != nil {
		s.logger.Error("failed to mark user verified", "error", err, "email", dto.Email)
		return err
	}

	s.logger.Info("registration verified", "email", dto.Email)
	return nil
}

// Login is step one: password check, then a login code is mailed. No tokens
// are returned until the code is verified.
func (s *Service) Login(ctx context.Context, dto LoginDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return ErrInvalidCredentials
	}

	if !u.IsActive {
		return ErrUserInactive
	}
	if !u.IsVerified {
		return ErrUserNotVerified
	}

	if _, err := s.otp.Issue(ctx, dto.Email, PurposeLogin); err != nil {
		s.logger.Error("login otp issue failed", "error", err, "email", dto.Email)
		return err
	}

	s.logger.Info("login code sent", "user_id", u.ID, "email", dto.Email)
	return nil
}

// VerifyLogin is step two: consume the login code and mint the token pair.
func (s *Service) VerifyLogin(ctx context.Context, dto VerifyOtpDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	if err := s.otp.Verify(ctx, dto.Email, PurposeLogin, dto.Code); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	if u == nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("login completed", "user_id", u.ID, "email", u.Email)
	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshTokens validates the refresh token and returns a new pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, claims.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	newRefreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, claims.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// ForgotPassword issues a reset code. Unknown emails report success too so
// the endpoint cannot be used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return err
	}
	if u == nil {
		s.logger.Info("password reset requested for unknown email", "email", dto.Email)
		return nil
	}

	if _, err := s.otp.Issue(ctx, dto.Email, PurposePasswordReset); err != nil {
		s.logger.Error("password reset otp issue failed", "error", err, "email", dto.Email)
		return err
	}

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, dto.Email, PurposePasswordReset, dto.Code); err != nil {
		return err
	}

	hash, err := s.HashPassword(dto.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, dto.Email, hash); err != nil {
		s.logger.Error("failed to update password", "error", err, "email", dto.Email)
		return err
	}

	s.logger.Info("password reset completed", "email", dto.Email)
	return nil
}

// GetUserWithPermissions loads the principal plus its resolved permission
// set. Called on every authenticated request; resolution is per-request by
// design so role edits apply on the next call.
func (s *Service) GetUserWithPermissions(ctx context.Context, userID int64) (*User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	perms, err := s.resolver.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsVerified:  u.IsVerified,
		Permissions: perms,
	}, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
