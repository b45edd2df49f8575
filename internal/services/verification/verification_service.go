package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/users"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

type VerificationService struct {
	DB     *gorm.DB
	Mailer mailer.Mailer

	now func() time.Time
}

func NewVerificationService(db *gorm.DB, m mailer.Mailer) *VerificationService {
	return &VerificationService{DB: db, Mailer: m, now: time.Now}
}

// Verify checks code against the user's pending code. Checks run in order:
// user exists, not yet verified, a code was issued, not expired, matches.
func (s *VerificationService) Verify(ctx context.Context, email, code string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperr.Validation("Account is already verified")
	}
	if u.AuthCode == nil {
		return apperr.Validation("No verification code found. Please request a new code.")
	}
	if u.AuthCodeExpiry == nil || u.AuthCodeExpiry.Before(s.now()) {
		return apperr.Validation("Verification code has expired. Please request a new code.")
	}
	if *u.AuthCode != strings.TrimSpace(code) {
		return apperr.Validation("Invalid verification code.")
	}

	err = s.DB.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"is_verified":      true,
		"auth_code":        nil,
		"auth_code_expiry": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	if err := s.Mailer.Send(ctx, mailer.Email{
		To:       u.Email,
		Template: mailer.TemplateAccountVerified,
		Data:     map[string]string{"name": u.FullName()},
	}); err != nil {
		slog.Warn("verification success email not queued", "user_id", u.ID, "error", err)
	}
	slog.Info("account verified", "user_id", u.ID)
	return nil
}

// ResendCode replaces the pending code with a fresh one.
func (s *VerificationService) ResendCode(ctx context.Context, email string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperr.Validation("Account is already verified")
	}

	code, err := utils.VerificationCode()
	if err != nil {
		return err
	}
	expiry := s.now().Add(users.CodeTTL)
	err = s.DB.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"auth_code":        code,
		"auth_code_expiry": expiry,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.Mailer.Send(ctx, mailer.Email{
		To:       u.Email,
		Template: mailer.TemplateVerificationCode,
		Data: map[string]string{
			"name":            u.FullName(),
			"code":            code,
			"expires_minutes": strconv.Itoa(int(users.CodeTTL / time.Minute)),
		},
	}); err != nil {
		slog.Warn("verification email not queued", "user_id", u.ID, "error", err)
	}
	return nil
}

func (s *VerificationService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found with email: " + email)
		}
		return nil, err
	}
	return &u, nil
}
