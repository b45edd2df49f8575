package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/profiles"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/users"
)

type UserHandler struct {
	Users        *users.UserService
	Developers   *profiles.DeveloperService
	SecureCookie bool
}

func NewUserHandler(us *users.UserService, ds *profiles.DeveloperService, secureCookie bool) *UserHandler {
	return &UserHandler{Users: us, Developers: ds, SecureCookie: secureCookie}
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req users.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	u, err := h.Users.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "User registered successfully. Verification code sent to email.", u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return respondError(c, apperr.Validation("Email and password are required"))
	}

	res, err := h.Users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	h.setTokenCookie(c, res.Tokens.AccessToken)
	return success(c, fiber.StatusOK, "Login successful", res)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *UserHandler) Refresh(c *fiber.Ctx) error {
	var req refreshReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	res, err := h.Users.Refresh(c.UserContext(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, err)
	}
	h.setTokenCookie(c, res.Tokens.AccessToken)
	return success(c, fiber.StatusOK, "Token refreshed", res)
}

func (h *UserHandler) Logout(c *fiber.Ctx) error {
	var req refreshReq
	_ = c.BodyParser(&req)

	if err := h.Users.Logout(c.UserContext(), strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})
	return success(c, fiber.StatusOK, "Logged out", nil)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	list, err := h.Users.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *UserHandler) GetByEmail(c *fiber.Ctx) error {
	u, err := h.Users.GetByEmail(c.UserContext(), c.Params("email"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", u)
}

func (h *UserHandler) ListByRole(c *fiber.Ctx) error {
	list, err := h.Users.ListByRole(c.UserContext(), c.Params("role"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *UserHandler) EmailExists(c *fiber.Ctx) error {
	ok, err := h.Users.EmailExists(c.UserContext(), c.Params("email"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", ok)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", u)
}

// MyDeveloperProfile returns the developer profile of the caller.
func (h *UserHandler) MyDeveloperProfile(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Developers.GetByUserID(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", d)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := h.selfOrAdmin(c)
	if err != nil {
		return respondError(c, err)
	}
	var req users.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	u, err := h.Users.Update(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "User updated", u)
}

func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := h.selfOrAdmin(c)
	if err != nil {
		return respondError(c, err)
	}
	st, ok := models.ParseUserStatus(c.Query("status"))
	if !ok {
		return respondError(c, apperr.Validation("Invalid status value. Valid values are: online, offline"))
	}

	if err := h.Users.UpdateStatus(c.UserContext(), id, st); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Status updated", fiber.Map{"status": st})
}

func (h *UserHandler) TouchLastSeen(c *fiber.Ctx) error {
	id, err := h.selfOrAdmin(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.TouchLastSeen(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Last seen updated", nil)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := h.selfOrAdmin(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "User deleted", nil)
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	id, err := h.selfOrAdmin(c)
	if err != nil {
		return respondError(c, err)
	}
	var req changePasswordReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	if err := h.Users.ChangePassword(c.UserContext(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Password changed", nil)
}

// Activate is mounted behind RequireRoles(admin).
func (h *UserHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	if _, err := h.selfOrAdmin(c); err != nil {
		return respondError(c, err)
	}
	return h.setActive(c, false)
}

func (h *UserHandler) setActive(c *fiber.Ctx, active bool) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.SetActive(c.UserContext(), id, active); err != nil {
		return respondError(c, err)
	}
	msg := "User deactivated"
	if active {
		msg = "User activated"
	}
	return success(c, fiber.StatusOK, msg, nil)
}

// selfOrAdmin returns the :id param when it is the caller or the caller is an admin.
func (h *UserHandler) selfOrAdmin(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := paramUUID(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	uid, err := getUserUUID(c)
	if err != nil {
		return uuid.Nil, err
	}
	if uid != id && currentRole(c) != models.RoleAdmin {
		return uuid.Nil, apperr.Forbidden("You can only manage your own account")
	}
	return id, nil
}

func (h *UserHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   h.Users.AccessExpiresMin * 60,
	})
}
