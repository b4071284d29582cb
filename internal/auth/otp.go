package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	otpDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/otp"
	"github.com/frahmantamala/taskboard/internal/mailer"
)

// Purpose namespaces codes so concurrent flows for the same email never
// collide: a registration code can never verify a login.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password_reset"
)

// OtpRepository persists one-time codes. Consume must be a conditional
// update (match code + unconsumed in a single statement) so that of two
// racing verify calls at most one wins.
type OtpRepository interface {
	Upsert(ctx context.Context, record *otpDatamodel.Code) error
	Get(ctx context.Context, email, purpose string) (*otpDatamodel.Code, error)
	Consume(ctx context.Context, email, purpose, code string) (bool, error)
	Delete(ctx context.Context, email, purpose string) error
}

// OtpManager issues, verifies and expires the short numeric codes backing
// registration, login second factor and password reset. A code moves through
// three states per (email, purpose): no code, pending, consumed-or-expired.
// Re-issuing overwrites the pending record, so only the newest code is valid.
type OtpManager struct {
	repo       OtpRepository
	dispatcher mailer.Dispatcher
	ttls       internal.OtpConfig
	logger     *slog.Logger
}

func NewOtpManager(repo OtpRepository, dispatcher mailer.Dispatcher, ttls internal.OtpConfig, logger *slog.Logger) *OtpManager {
	return &OtpManager{
		repo:       repo,
		dispatcher: dispatcher,
		ttls:       ttls,
		logger:     logger,
	}
}

func (m *OtpManager) ttl(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeLogin:
		return m.ttls.LoginTTL
	case PurposeRegister:
		return m.ttls.RegisterTTL
	case PurposePasswordReset:
		return m.ttls.PasswordResetTTL
	default:
		return m.ttls.LoginTTL
	}
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue writes a fresh code for (email, purpose) and mails it. If the mail
// provider fails, the just-written record is rolled back so the address is
// left with no pending code rather than an undeliverable one.
func (m *OtpManager) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	now := time.Now()
	record := &otpDatamodel.Code{
		Email:     email,
		Purpose:   string(purpose),
		Code:      code,
		ExpiresAt: now.Add(m.ttl(purpose)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.repo.Upsert(ctx, record); err != nil {
		m.logger.Error("failed to store otp record", "error", err, "email", email, "purpose", purpose)
		return "", err
	}

	subject, body := composeOtpMail(purpose, code, m.ttl(purpose))
	if err := m.dispatcher.Send(ctx, email, subject, body); err != nil {
		m.logger.Error("otp dispatch failed, rolling back record", "error", err, "email", email, "purpose", purpose)
		if delErr := m.repo.Delete(ctx, email, string(purpose)); delErr != nil {
			m.logger.Error("failed to roll back otp record after dispatch failure",
				"error", delErr, "email", email, "purpose", purpose)
		}
		return "", err
	}

	m.logger.Info("otp issued", "email", email, "purpose", purpose, "expires_at", record.ExpiresAt)
	return code, nil
}

// Verify checks the submitted code against the live record and consumes it.
// Expiry is evaluated here by timestamp comparison; no sweeper is involved.
func (m *OtpManager) Verify(ctx context.Context, email string, purpose Purpose, submitted string) error {
	record, err := m.repo.Get(ctx, email, string(purpose))
	if err != nil {
		return err
	}
	if record == nil || record.ConsumedAt != nil {
		return internal.ErrOtpNotRequested
	}

	if !time.Now().Before(record.ExpiresAt) {
		return internal.ErrOtpExpired
	}

	if record.Code != submitted {
		return internal.ErrOtpMismatch
	}

	consumed, err := m.repo.Consume(ctx, email, string(purpose), submitted)
	if err != nil {
		return err
	}
	if !consumed {
		// a concurrent verify won the conditional update
		return internal.ErrOtpNotRequested
	}

	m.logger.Info("otp verified", "email", email, "purpose", purpose)
	return nil
}

func composeOtpMail(purpose Purpose, code string, ttl time.Duration) (string, string) {
	minutes := int(ttl.Minutes())
	switch purpose {
	case PurposeRegister:
		return "Verify your email",
			fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	case PurposeLogin:
		return "Your sign-in code",
			fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.", code, minutes)
	case PurposePasswordReset:
		return "Reset your password",
			fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, minutes)
	default:
		return "Your one-time code",
			fmt.Sprintf("Your code is %s. It expires in %d minutes.", code, minutes)
	}
}
