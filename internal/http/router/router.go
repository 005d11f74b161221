package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/studgig-backend/internal/config"
	"github.com/ignatzorin/studgig-backend/internal/http/handlers"
	"github.com/ignatzorin/studgig-backend/internal/http/middleware"
)

// Handlers собирает все хэндлеры, которые монтирует роутер.
type Handlers struct {
	Health       *handlers.HealthHandler
	Payment      *handlers.PaymentHandler
	Escrow       *handlers.EscrowHandler
	Interaction  *handlers.InteractionHandler
	Work         *handlers.WorkAssignmentHandler
	Invoice      *handlers.InvoiceHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, tokens middleware.TokenParser, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")

	// Колбэки шлюзов приходят без токена, подлинность проверяется подписью.
	callbacks := api.Group("/payments/callbacks")
	callbacks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		callbacks.POST("/:gateway/:event", h.Payment.Callback)
	}

	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	writes := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	wallet := protected.Group("/wallet")
	{
		wallet.GET("", h.Payment.GetWallet)
		wallet.GET("/transactions", h.Payment.ListTransactions)
		wallet.POST("/deposits", writes, h.Payment.Deposit)
		wallet.POST("/withdrawals", writes, h.Payment.Withdraw)
	}

	escrow := protected.Group("/escrow")
	{
		escrow.POST("", writes, h.Escrow.Create)
		escrow.GET("", h.Escrow.List)
		escrow.GET("/:id", middleware.UUIDValidator("id"), h.Escrow.Get)
		escrow.POST("/:id/start", middleware.UUIDValidator("id"), writes, h.Escrow.Start)
		escrow.POST("/:id/complete", middleware.UUIDValidator("id"), writes, h.Escrow.Complete)
		escrow.POST("/:id/release", middleware.UUIDValidator("id"), writes, h.Escrow.Release)
		escrow.POST("/:id/dispute", middleware.UUIDValidator("id"), writes, h.Escrow.Dispute)
	}

	interactions := protected.Group("/interactions")
	{
		interactions.POST("", writes, h.Interaction.Submit)
		interactions.GET("", h.Interaction.List)
		interactions.GET("/:id", middleware.UUIDValidator("id"), h.Interaction.Get)
		interactions.PUT("/:id/status", middleware.UUIDValidator("id"), writes, h.Interaction.UpdateStatus)
		interactions.POST("/:id/assignment", middleware.UUIDValidator("id"), writes, h.Interaction.EnsureAssignment)
	}

	works := protected.Group("/work-assignments")
	{
		works.GET("", h.Work.List)
		works.GET("/:id", middleware.UUIDValidator("id"), h.Work.Get)
		works.PUT("/:id/status", middleware.UUIDValidator("id"), writes, h.Work.UpdateStatus)
		works.POST("/:id/fund", middleware.UUIDValidator("id"), writes, h.Work.Fund)
		works.POST("/:id/invoice", middleware.UUIDValidator("id"), writes, h.Work.GenerateInvoice)
	}

	invoices := protected.Group("/invoices")
	{
		invoices.GET("", h.Invoice.List)
		invoices.GET("/:id", middleware.UUIDValidator("id"), h.Invoice.Get)
		invoices.PUT("/:id/status", middleware.UUIDValidator("id"), writes, h.Invoice.UpdateStatus)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread/count", h.Notification.CountUnread)
		notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
	}

	return r
}
