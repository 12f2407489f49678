package handler

import (
	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/model"
	"llouest/internal/service"
)

func GetProfile(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := svc.GetProfile(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func UpdateProfile(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.UpdateProfileInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		u, err := svc.UpdateProfile(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func UpdatePreferences(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.UpdatePreferencesInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		u, err := svc.UpdatePreferences(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

// RegisterDevice stores the FCM token; an empty token unregisters the device.
func RegisterDevice(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RegisterDeviceInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if err := svc.RegisterDevice(c.UserContext(), middleware.ActorFrom(c), in); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DeleteAccount(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteAccount(c.UserContext(), middleware.ActorFrom(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListUsers supports ?role=client|admin and ?q= (name or email).
func ListUsers(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), service.UserListFilter{
			Role:   model.Role(c.Query("role")),
			Query:  c.Query("q"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func GetUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		u, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func SetUserRole(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var in service.SetRoleInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		u, err := svc.SetRole(c.UserContext(), middleware.ActorFrom(c), id, in.Role)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func DeleteUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
