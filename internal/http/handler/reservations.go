package handler

import (
	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/model"
	"llouest/internal/service"
)

// CreateReservation is public; a signed-in caller gets the reservation linked
// to their account.
//
// @Summary Book a service
// @Tags reservations
// @Accept json
// @Produce json
// @Param body body service.CreateReservationInput true "reservation"
// @Success 201 {object} model.Reservation
// @Failure 400 {object} errorPayload
// @Router /api/v1/reservations [post]
func CreateReservation(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateReservationInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		r, err := svc.Create(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

func ListMyReservations(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.ListMine(c.UserContext(), middleware.ActorFrom(c),
			model.ReservationStatus(c.Query("status")), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// ListReservations is the admin listing with ?status=, ?service_id= and ?user_id= filters.
func ListReservations(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), service.ReservationListFilter{
			Status:    model.ReservationStatus(c.Query("status")),
			ServiceID: c.Query("service_id"),
			UserID:    c.Query("user_id"),
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func GetReservation(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		r, err := svc.Get(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func UpdateReservationStatus(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var in service.UpdateStatusInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		r, err := svc.UpdateStatus(c.UserContext(), id, in.Status)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func ReplyReservation(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var in service.ReplyInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		r, err := svc.Reply(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func CancelReservation(svc service.ReservationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		r, err := svc.Cancel(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func DeleteReservation(svc service.ReservationService) fiber.Handler {
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
