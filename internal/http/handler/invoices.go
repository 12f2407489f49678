package handler

import (
	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/service"
)

// GenerateInvoice godoc
// @Summary Issue an invoice (admin)
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.GenerateInvoiceInput true "invoice"
// @Success 201 {object} model.Invoice
// @Router /api/v1/invoices [post]
func GenerateInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.GenerateInvoiceInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		inv, err := svc.Generate(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(inv)
	}
}

// ListMyInvoices serves GET /users/me/invoices.
func ListMyInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.ListForUser(c.UserContext(), middleware.ActorFrom(c).UserID, limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// ListInvoices is the admin listing, optionally narrowed with ?user_id=.
func ListInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.ListForUser(c.UserContext(), c.Query("user_id"), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func GetInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		inv, err := svc.Get(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(inv)
	}
}

func DownloadInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		rc, inv, err := svc.Download(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, attachment(inv.Number+".pdf"))
		return c.SendStream(rc)
	}
}

func DeleteInvoice(svc service.InvoiceService) fiber.Handler {
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
