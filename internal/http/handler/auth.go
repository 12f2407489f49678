package handler

import (
	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/service"
)

// Signup godoc
// @Summary Register a client account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.SignupInput true "account"
// @Success 201 {object} model.User
// @Failure 409 {object} errorPayload
// @Router /api/v1/auth/signup [post]
func Signup(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.SignupInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		u, err := svc.Signup(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// VerifyEmail godoc
// @Summary Confirm the signup code and sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.VerifyCodeInput true "code"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} errorPayload
// @Failure 410 {object} errorPayload "expired, a new code was sent"
// @Router /api/v1/auth/verify-email [post]
func VerifyEmail(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.VerifyCodeInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		res, err := svc.VerifyEmail(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func ResendVerification(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.EmailInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if err := svc.ResendVerification(c.UserContext(), in.Email); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}

// Signin godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.SigninInput true "credentials"
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} errorPayload
// @Failure 403 {object} errorPayload "email not verified"
// @Router /api/v1/auth/signin [post]
func Signin(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.SigninInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		res, err := svc.Signin(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// ForgotPassword always answers 202 so account existence is not revealed.
func ForgotPassword(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.EmailInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if err := svc.ForgotPassword(c.UserContext(), in.Email); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func ResetPassword(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ResetPasswordInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if err := svc.ResetPassword(c.UserContext(), in); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func RequestEmailChange(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.EmailChangeInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if err := svc.RequestEmailChange(c.UserContext(), middleware.ActorFrom(c), in); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func ConfirmEmailChange(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ConfirmEmailChangeInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		u, err := svc.ConfirmEmailChange(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Router /api/v1/auth/me [get]
func Me(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := svc.Me(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}
