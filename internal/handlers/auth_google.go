package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/users"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Users           *users.UserService
	OAuth           *oauth2.Config
	FrontendBaseURL string
	SecureCookie    bool
}

func NewGoogleOAuthHandler(us *users.UserService, clientID, secret, redirect, frontend string, secureCookie bool) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		Users: us,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			RedirectURL:  redirect,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		FrontendBaseURL: strings.TrimRight(frontend, "/"),
		SecureCookie:    secureCookie,
	}
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	st, err := utils.RandomToken(32)
	if err != nil {
		return respondError(c, err)
	}

	// state and next live in short cookies until the callback
	h.tempCookie(c, "oauth_state", st, 10*60)
	h.tempCookie(c, "oauth_next", next, 10*60)

	return c.Redirect(h.OAuth.AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return fail(c, fiber.StatusBadRequest, "Missing code/state")
	}

	stCookie := c.Cookies("oauth_state")
	if stCookie == "" || stCookie != state {
		return fail(c, fiber.StatusBadRequest, "Invalid state")
	}
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}

	ctx := c.UserContext()
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		slog.Warn("google code exchange failed", "error", err)
		return fail(c, fiber.StatusBadRequest, "Failed to exchange code")
	}

	resp, err := h.OAuth.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		return fail(c, fiber.StatusBadGateway, "Failed to fetch userinfo")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return fail(c, fiber.StatusBadGateway, "Failed to decode userinfo")
	}
	if strings.TrimSpace(gu.Email) == "" {
		return fail(c, fiber.StatusBadRequest, "Email not found from Google")
	}

	u, err := h.Users.UpsertOAuthUser(ctx, gu.Email, gu.Name)
	if err != nil {
		return respondError(c, err)
	}
	if !u.IsActive {
		return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape("Account is deactivated"), http.StatusTemporaryRedirect)
	}

	pair, err := h.Users.IssueTokens(ctx, u)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   pair.ExpiresIn,
	})
	h.tempCookie(c, "oauth_state", "", -1)
	h.tempCookie(c, "oauth_next", "", -1)

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}
