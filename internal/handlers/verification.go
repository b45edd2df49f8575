package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/verification"
)

type VerificationHandler struct {
	Verification *verification.VerificationService
}

func NewVerificationHandler(vs *verification.VerificationService) *VerificationHandler {
	return &VerificationHandler{Verification: vs}
}

type verifyReq struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	var req verifyReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	if req.Email == "" || req.VerificationCode == "" {
		return respondError(c, apperr.Validation("Email and verification code are required"))
	}

	if err := h.Verification.Verify(c.UserContext(), req.Email, req.VerificationCode); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Account verified successfully", nil)
}

type resendReq struct {
	Email string `json:"email"`
}

func (h *VerificationHandler) ResendCode(c *fiber.Ctx) error {
	var req resendReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	if req.Email == "" {
		return respondError(c, apperr.Validation("Email is required"))
	}

	if err := h.Verification.ResendCode(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Verification code sent to email", nil)
}
