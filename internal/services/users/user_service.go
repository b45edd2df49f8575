package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/events"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

// CodeTTL is how long an emailed verification code stays valid.
const CodeTTL = 15 * time.Minute

const minPasswordLen = 6

type UserService struct {
	DB     *gorm.DB
	RDB    *redis.Client
	Mailer mailer.Mailer
	Events events.Publisher

	JWTSecret        string
	AccessExpiresMin int
	RefreshTTL       time.Duration
}

func NewUserService(db *gorm.DB, rdb *redis.Client, m mailer.Mailer, ev events.Publisher, secret string, accessMin int, refreshTTL time.Duration) *UserService {
	return &UserService{
		DB:               db,
		RDB:              rdb,
		Mailer:           m,
		Events:           ev,
		JWTSecret:        secret,
		AccessExpiresMin: accessMin,
		RefreshTTL:       refreshTTL,
	}
}

type RegisterInput struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	switch {
	case first == "":
		return nil, apperr.Validation("First name is required")
	case last == "":
		return nil, apperr.Validation("Last name is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, apperr.Validation("A valid email is required")
	case len(in.Password) < minPasswordLen:
		return nil, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	role := models.RoleClient
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok || r == models.RoleAdmin {
			return nil, apperr.Validation("Role must be client or developer")
		}
		role = r
	}

	exists, err := s.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("Email already registered")
	}
	if username != "" {
		if err := s.ensureUsernameFree(ctx, username, uuid.Nil); err != nil {
			return nil, err
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	code, err := utils.VerificationCode()
	if err != nil {
		return nil, err
	}
	expiry := time.Now().Add(CodeTTL)

	u := models.User{
		FirstName:      first,
		LastName:       last,
		Email:          email,
		Telephone:      strings.TrimSpace(in.Telephone),
		Password:       hash,
		Role:           role,
		IsActive:       true,
		Status:         models.StatusOffline,
		AuthCode:       &code,
		AuthCodeExpiry: &expiry,
	}
	if username != "" {
		u.Username = &username
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		switch role {
		case models.RoleDeveloper:
			d := models.Developer{UserID: u.ID, Username: username}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
			u.Developer = &d
		case models.RoleClient:
			c := models.Client{UserID: u.ID}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			u.Client = &c
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.Mailer.Send(ctx, mailer.Email{
		To:       u.Email,
		Template: mailer.TemplateVerificationCode,
		Data:     map[string]string{"name": u.FullName(), "code": code},
	}); err != nil {
		slog.Warn("verification email not queued", "user_id", u.ID, "error", err)
	}
	if err := s.Events.Publish(ctx, events.UserRegistered, u.ID.String(), map[string]any{
		"user_id": u.ID,
		"role":    u.Role,
	}); err != nil {
		slog.Warn("event not published", "type", events.UserRegistered, "error", err)
	}

	slog.Info("user registered", "user_id", u.ID, "role", u.Role)
	return &u, nil
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type LoginResult struct {
	Tokens TokenPair    `json:"tokens"`
	User   *models.User `json:"user"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	pair, err := s.IssueTokens(ctx, &u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *pair, User: &u}, nil
}

// IssueTokens signs an access token and stores a fresh refresh token in Redis.
func (s *UserService) IssueTokens(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.Role), s.AccessExpiresMin)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	raw, err := utils.RandomToken(32)
	if err != nil {
		return nil, err
	}
	if err := s.RDB.Set(ctx, refreshKey(raw), u.ID.String(), s.RefreshTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    s.AccessExpiresMin * 60,
	}, nil
}

// Refresh consumes refreshToken and issues a new pair. A token works once.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}
	uid, err := s.RDB.GetDel(ctx, refreshKey(refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}

	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *pair, User: u}, nil
}

func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.RDB.Del(ctx, refreshKey(refreshToken)).Err()
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *UserService) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, apperr.Validation("Invalid role: " + role)
	}
	out := []models.User{}
	err := s.DB.WithContext(ctx).Where("role = ?", r).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found with email: " + email)
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error
	return n > 0, err
}

type UpdateInput struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Telephone *string `json:"telephone"`
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, apperr.Validation("First name is required")
		}
		updates["first_name"] = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, apperr.Validation("Last name is required")
		}
		updates["last_name"] = v
	}
	if in.Telephone != nil {
		updates["telephone"] = strings.TrimSpace(*in.Telephone)
	}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			updates["username"] = nil
		} else {
			if err := s.ensureUsernameFree(ctx, v, id); err != nil {
				return nil, err
			}
			updates["username"] = v
		}
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.DB.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// UpdateStatus sets online/offline. Going offline also stamps last_seen.
func (s *UserService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == models.StatusOffline {
		updates["last_seen"] = time.Now()
	}
	return s.updateColumns(ctx, id, updates)
}

func (s *UserService) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	return s.updateColumns(ctx, id, map[string]interface{}{"last_seen": time.Now()})
}

func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.updateColumns(ctx, id, map[string]interface{}{"is_active": active})
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(u.Password, current) {
		return apperr.Validation("Current password is incorrect")
	}
	if len(next) < minPasswordLen {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.updateColumns(ctx, id, map[string]interface{}{"password_hash": hash})
}

// UpsertOAuthUser finds a user by email or creates a verified client account
// with an unusable random password.
func (s *UserService) UpsertOAuthUser(ctx context.Context, email, fullName string) (*models.User, error) {
	email = normalizeEmail(email)
	u, err := s.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	first, last := splitName(fullName, email)
	raw, err := utils.RandomToken(24)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	nu := models.User{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Password:   hash,
		Role:       models.RoleClient,
		IsVerified: true,
		IsActive:   true,
		Status:     models.StatusOffline,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&nu).Error; err != nil {
			return err
		}
		return tx.Create(&models.Client{UserID: nu.ID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}
	slog.Info("user created via oauth", "user_id", nu.ID)
	return &nu, nil
}

func (s *UserService) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, self uuid.UUID) error {
	var n int64
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("Username already taken")
	}
	return nil
}

func refreshKey(raw string) string {
	return "refresh:" + utils.HashToken(raw)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitName(full, email string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		full = strings.Split(email, "@")[0]
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return parts[0], strings.Join(parts[1:], " ")
}
