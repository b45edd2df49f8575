package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/testutil"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, email mailer.Email) error {
	return m.Called(ctx, email).Error(0)
}

func setup(t *testing.T) (*VerificationService, *mockMailer, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	m := &mockMailer{}
	m.On("Send", mock.Anything, mock.Anything).Return(nil)
	return NewVerificationService(gdb, m), m, gdb
}

func withCode(t *testing.T, gdb *gorm.DB, u *models.User, code string, expiry time.Time) {
	t.Helper()
	require.NoError(t, gdb.Model(u).Updates(map[string]interface{}{
		"auth_code":        code,
		"auth_code_expiry": expiry,
	}).Error)
}

func TestVerifySuccess(t *testing.T) {
	svc, m, gdb := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, gdb, "dev@example.com", models.RoleDeveloper)
	withCode(t, gdb, u, "042137", time.Now().Add(10*time.Minute))

	require.NoError(t, svc.Verify(ctx, "DEV@example.com", "042137"))

	var got models.User
	require.NoError(t, gdb.First(&got, "id = ?", u.ID).Error)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.AuthCode)
	assert.Nil(t, got.AuthCodeExpiry)
	m.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(e mailer.Email) bool {
		return e.Template == mailer.TemplateAccountVerified && e.To == "dev@example.com"
	}))

	err := svc.Verify(ctx, "dev@example.com", "042137")
	assert.Equal(t, "Account is already verified", apperr.Message(err))
}

func TestVerifyErrorOrder(t *testing.T) {
	svc, _, gdb := setup(t)
	ctx := context.Background()

	err := svc.Verify(ctx, "missing@example.com", "000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "User not found with email: missing@example.com", apperr.Message(err))

	u := testutil.CreateUser(t, gdb, "client@example.com", models.RoleClient)
	err = svc.Verify(ctx, u.Email, "000000")
	assert.Equal(t, "No verification code found. Please request a new code.", apperr.Message(err))

	// an expired code reports expiry even when the code is wrong
	withCode(t, gdb, u, "111111", time.Now().Add(-time.Minute))
	err = svc.Verify(ctx, u.Email, "999999")
	assert.Equal(t, "Verification code has expired. Please request a new code.", apperr.Message(err))

	withCode(t, gdb, u, "111111", time.Now().Add(time.Minute))
	err = svc.Verify(ctx, u.Email, "999999")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Invalid verification code.", apperr.Message(err))
}

func TestResendCode(t *testing.T) {
	svc, m, gdb := setup(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	u := testutil.CreateUser(t, gdb, "client@example.com", models.RoleClient)
	require.NoError(t, svc.ResendCode(ctx, u.Email))

	var got models.User
	require.NoError(t, gdb.First(&got, "id = ?", u.ID).Error)
	require.NotNil(t, got.AuthCode)
	assert.Regexp(t, `^\d{6}$`, *got.AuthCode)
	require.NotNil(t, got.AuthCodeExpiry)
	assert.True(t, got.AuthCodeExpiry.Equal(fixed.Add(15*time.Minute)))

	m.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(e mailer.Email) bool {
		return e.Data["code"] == *got.AuthCode && e.Data["expires_minutes"] == "15"
	}))

	require.NoError(t, gdb.Model(&got).Update("is_verified", true).Error)
	err := svc.ResendCode(ctx, u.Email)
	assert.Equal(t, "Account is already verified", apperr.Message(err))

	assert.ErrorIs(t, svc.ResendCode(ctx, "nobody@example.com"), apperr.ErrNotFound)
}
