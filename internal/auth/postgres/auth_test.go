package postgres_test

import (
	"context"
	"testing"
	"time"

	authPostgres "github.com/frahmantamala/taskboard/internal/auth/postgres"
	otpDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/otp"
	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

// SQLite-compatible models for testing
type SQLiteUser struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Mobile       string    `gorm:"column:mobile"`
	IsVerified   bool      `gorm:"column:is_verified;default:false"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (SQLiteUser) TableName() string {
	return "users"
}

type SQLiteOtpCode struct {
	ID         int64      `gorm:"primaryKey"`
	Email      string     `gorm:"column:email;not null;uniqueIndex:idx_otp_email_purpose"`
	Purpose    string     `gorm:"column:purpose;not null;uniqueIndex:idx_otp_email_purpose"`
	Code       string     `gorm:"column:code;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time `gorm:"column:consumed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (SQLiteOtpCode) TableName() string {
	return "otp_codes"
}

var _ = Describe("Auth PostgreSQL Repositories", func() {
	var (
		db       *gorm.DB
		ctx      context.Context
		userRepo *authPostgres.UserRepository
		otpRepo  *authPostgres.OtpRepository
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteUser{}, &SQLiteOtpCode{})
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
		userRepo = authPostgres.NewUserRepository(db)
		otpRepo = authPostgres.NewOtpRepository(db)
	})

	Describe("UserRepository", func() {
		It("creates and loads a user by email", func() {
			u := &userDatamodel.User{
				Email:        "user@example.com",
				Name:         "Test User",
				PasswordHash: "hash",
				IsActive:     true,
			}
			Expect(userRepo.Create(ctx, u)).To(Succeed())
			Expect(u.ID).To(BeNumerically(">", 0))

			loaded, err := userRepo.GetByEmail(ctx, "user@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Name).To(Equal("Test User"))
		})

		It("returns nil without error for an unknown email", func() {
			loaded, err := userRepo.GetByEmail(ctx, "nobody@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("marks a user verified", func() {
			u := &userDatamodel.User{Email: "user@example.com", Name: "T", PasswordHash: "h", IsActive: true}
			Expect(userRepo.Create(ctx, u)).To(Succeed())

			Expect(userRepo.MarkVerified(ctx, "user@example.com")).To(Succeed())

			loaded, _ := userRepo.GetByID(ctx, u.ID)
			Expect(loaded.IsVerified).To(BeTrue())
		})

		It("updates the password hash", func() {
			u := &userDatamodel.User{Email: "user@example.com", Name: "T", PasswordHash: "old", IsActive: true}
			Expect(userRepo.Create(ctx, u)).To(Succeed())

			Expect(userRepo.UpdatePassword(ctx, "user@example.com", "new")).To(Succeed())

			loaded, _ := userRepo.GetByEmail(ctx, "user@example.com")
			Expect(loaded.PasswordHash).To(Equal("new"))
		})
	})

	Describe("OtpRepository", func() {
		newCode := func(email, purpose, code string) *otpDatamodel.Code {
			now := time.Now()
			return &otpDatamodel.Code{
				Email:     email,
				Purpose:   purpose,
				Code:      code,
				ExpiresAt: now.Add(5 * time.Minute),
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		It("stores and loads a code", func() {
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "123456"))).To(Succeed())

			rec, err := otpRepo.Get(ctx, "user@example.com", "login")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).NotTo(BeNil())
			Expect(rec.Code).To(Equal("123456"))
			Expect(rec.ConsumedAt).To(BeNil())
		})

		It("replaces the prior code on upsert, clearing the consumed marker", func() {
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "111111"))).To(Succeed())

			ok, err := otpRepo.Consume(ctx, "user@example.com", "login", "111111")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "222222"))).To(Succeed())

			rec, err := otpRepo.Get(ctx, "user@example.com", "login")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Code).To(Equal("222222"))
			Expect(rec.ConsumedAt).To(BeNil())
		})

		It("keeps one row per email and purpose pair", func() {
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "111111"))).To(Succeed())
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "register", "222222"))).To(Succeed())
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "333333"))).To(Succeed())

			var count int64
			Expect(db.Model(&otpDatamodel.Code{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(2)))
		})

		Describe("Consume", func() {
			It("refuses a wrong code", func() {
				Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "123456"))).To(Succeed())

				ok, err := otpRepo.Consume(ctx, "user@example.com", "login", "654321")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())

				rec, _ := otpRepo.Get(ctx, "user@example.com", "login")
				Expect(rec.ConsumedAt).To(BeNil())
			})

			It("succeeds exactly once for the right code", func() {
				Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "123456"))).To(Succeed())

				ok, err := otpRepo.Consume(ctx, "user@example.com", "login", "123456")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())

				ok, err = otpRepo.Consume(ctx, "user@example.com", "login", "123456")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("does not touch other purposes for the same email", func() {
				Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "111111"))).To(Succeed())
				Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "register", "222222"))).To(Succeed())

				ok, err := otpRepo.Consume(ctx, "user@example.com", "login", "111111")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())

				rec, _ := otpRepo.Get(ctx, "user@example.com", "register")
				Expect(rec.ConsumedAt).To(BeNil())
			})
		})

		It("deletes a code", func() {
			Expect(otpRepo.Upsert(ctx, newCode("user@example.com", "login", "123456"))).To(Succeed())
			Expect(otpRepo.Delete(ctx, "user@example.com", "login")).To(Succeed())

			rec, err := otpRepo.Get(ctx, "user@example.com", "login")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})
	})
})
