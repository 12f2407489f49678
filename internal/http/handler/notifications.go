package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/logger"
	"llouest/internal/service"
)

// DefaultHeartbeat keeps proxies from closing idle event streams.
const DefaultHeartbeat = 30 * time.Second

func ListNotifications(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), middleware.ActorFrom(c), c.QueryBool("unread"), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func UnreadCount(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.UnreadCount(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"unread": n})
	}
}

func MarkNotificationRead(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := svc.MarkRead(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func MarkAllNotificationsRead(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.MarkAllRead(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"updated": n})
	}
}

func DeleteNotification(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// NotificationStream godoc
// @Summary Server-Sent Events stream of the caller's notifications
// @Description Sends a "connected" event, then one event per notification and a heartbeat event every 30s.
// @Tags notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Param access_token query string false "token for EventSource clients"
// @Router /api/v1/notifications/stream [get]
func NotificationStream(svc service.NotificationService, heartbeat time.Duration) fiber.Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		log := logger.FromContext(c.UserContext()).With().Str("user_id", actor.UserID).Logger()

		// The stream outlives this handler, so it cannot hang off the request context.
		ctx, cancel := context.WithCancel(context.Background())
		events, err := svc.Subscribe(ctx, actor)
		if err != nil {
			cancel()
			return err
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			ticker := time.NewTicker(heartbeat)
			defer ticker.Stop()

			if err := sendEvent(w, "connected", fiber.Map{"user_id": actor.UserID, "timestamp": time.Now().UTC()}); err != nil {
				return
			}
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					if err := sendEvent(w, e.Type, e.Data); err != nil {
						log.Debug().Err(err).Msg("event stream closed by client")
						return
					}
				case <-ticker.C:
					if err := sendEvent(w, "heartbeat", fiber.Map{"timestamp": time.Now().UTC()}); err != nil {
						log.Debug().Err(err).Msg("event stream closed by client")
						return
					}
				}
			}
		})
		return nil
	}
}

// sendEvent writes one SSE frame and flushes it. A flush error means the client is gone.
func sendEvent(w *bufio.Writer, event string, data any) error {
	var payload []byte
	switch d := data.(type) {
	case json.RawMessage:
		payload = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		payload = b
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}

