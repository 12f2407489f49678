package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/http/middleware"
	"llouest/internal/model"
	"llouest/internal/service"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Reservations  service.ReservationService
	Reviews       service.ReviewService
	Contact       service.ContactService
	Notifications service.NotificationService
	Files         service.FileService
	Invoices      service.InvoiceService
}

// Options carries the cross-cutting pieces routes need.
type Options struct {
	Tokens    middleware.TokenParser
	Accounts  middleware.Accounts
	DB        Pinger
	Heartbeat time.Duration
	// AuthLimiter guards /auth; nil disables it.
	AuthLimiter fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: bind, call one service method, write the result.
func RegisterRoutes(app *fiber.App, svc Services, opt Options) {
	app.Get("/health", HealthCheck(opt.DB))
	app.Get("/healthz", LivenessProbe())

	requireAuth := middleware.RequireAuth(opt.Tokens, opt.Accounts)
	optionalAuth := middleware.OptionalAuth(opt.Tokens, opt.Accounts)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	api := app.Group("/api/v1", middleware.NoStore())

	authGroup := api.Group("/auth")
	if opt.AuthLimiter != nil {
		authGroup.Use(opt.AuthLimiter)
	}
	authGroup.Post("/signup", Signup(svc.Auth))
	authGroup.Post("/verify-email", VerifyEmail(svc.Auth))
	authGroup.Post("/resend-verification", ResendVerification(svc.Auth))
	authGroup.Post("/signin", Signin(svc.Auth))
	authGroup.Post("/forgot-password", ForgotPassword(svc.Auth))
	authGroup.Post("/reset-password", ResetPassword(svc.Auth))
	authGroup.Post("/change-email", requireAuth, RequestEmailChange(svc.Auth))
	authGroup.Post("/change-email/confirm", requireAuth, ConfirmEmailChange(svc.Auth))
	authGroup.Get("/me", requireAuth, Me(svc.Auth))

	users := api.Group("/users", requireAuth)
	users.Get("/me", GetProfile(svc.Users))
	users.Patch("/me", UpdateProfile(svc.Users))
	users.Delete("/me", DeleteAccount(svc.Users))
	users.Patch("/me/preferences", UpdatePreferences(svc.Users))
	users.Put("/me/device", RegisterDevice(svc.Users))
	users.Get("/me/invoices", ListMyInvoices(svc.Invoices))
	users.Get("/", adminOnly, ListUsers(svc.Users))
	users.Get("/:id", adminOnly, GetUser(svc.Users))
	users.Patch("/:id/role", adminOnly, SetUserRole(svc.Users))
	users.Delete("/:id", adminOnly, DeleteUser(svc.Users))

	reservations := api.Group("/reservations")
	reservations.Post("/", optionalAuth, CreateReservation(svc.Reservations))
	reservations.Get("/me", requireAuth, ListMyReservations(svc.Reservations))
	reservations.Get("/", requireAuth, adminOnly, ListReservations(svc.Reservations))
	reservations.Get("/:id", requireAuth, GetReservation(svc.Reservations))
	reservations.Post("/:id/cancel", requireAuth, CancelReservation(svc.Reservations))
	reservations.Patch("/:id/status", requireAuth, adminOnly, UpdateReservationStatus(svc.Reservations))
	reservations.Post("/:id/reply", requireAuth, adminOnly, ReplyReservation(svc.Reservations))
	reservations.Delete("/:id", requireAuth, adminOnly, DeleteReservation(svc.Reservations))

	reviews := api.Group("/reviews")
	reviews.Get("/service/:serviceID", ListServiceReviews(svc.Reviews))
	reviews.Get("/me", requireAuth, ListMyReviews(svc.Reviews))
	reviews.Get("/:id", GetReview(svc.Reviews))
	reviews.Post("/", requireAuth, CreateReview(svc.Reviews))
	reviews.Patch("/:id", requireAuth, UpdateReview(svc.Reviews))
	reviews.Delete("/:id", requireAuth, DeleteReview(svc.Reviews))

	contact := api.Group("/contact")
	contact.Post("/", CreateContact(svc.Contact))
	contact.Get("/", requireAuth, adminOnly, ListContacts(svc.Contact))
	contact.Get("/:id", requireAuth, adminOnly, GetContact(svc.Contact))
	contact.Post("/:id/reply", requireAuth, adminOnly, ReplyContact(svc.Contact))
	contact.Delete("/:id", requireAuth, adminOnly, DeleteContact(svc.Contact))

	notifications := api.Group("/notifications", requireAuth)
	notifications.Get("/", ListNotifications(svc.Notifications))
	notifications.Get("/unread-count", UnreadCount(svc.Notifications))
	notifications.Get("/stream", NotificationStream(svc.Notifications, opt.Heartbeat))
	notifications.Post("/read-all", MarkAllNotificationsRead(svc.Notifications))
	notifications.Post("/:id/read", MarkNotificationRead(svc.Notifications))
	notifications.Delete("/:id", DeleteNotification(svc.Notifications))

	files := api.Group("/files", requireAuth)
	files.Post("/", UploadFile(svc.Files))
	files.Get("/", ListFiles(svc.Files))
	files.Get("/:id", GetFile(svc.Files))
	files.Get("/:id/download", DownloadFile(svc.Files))
	files.Delete("/:id", DeleteFile(svc.Files))

	invoices := api.Group("/invoices", requireAuth)
	invoices.Post("/", adminOnly, GenerateInvoice(svc.Invoices))
	invoices.Get("/", adminOnly, ListInvoices(svc.Invoices))
	invoices.Get("/:id", GetInvoice(svc.Invoices))
	invoices.Get("/:id/download", DownloadInvoice(svc.Invoices))
	invoices.Delete("/:id", adminOnly, DeleteInvoice(svc.Invoices))
}
