package handler

import (
	"github.com/gofiber/fiber/v2"

	"llouest/internal/model"
	"llouest/internal/service"
)

func CreateContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateContactInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		m, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

func ListContacts(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), model.ContactStatus(c.Query("status")), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func GetContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		m, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

func ReplyContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var in service.ReplyInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		m, err := svc.Reply(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

func DeleteContact(svc service.ContactService) fiber.Handler {
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
