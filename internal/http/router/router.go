package router

import (
	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/config"
	"github.com/vyvozim/hauling-backend/internal/http/handlers"
	"github.com/vyvozim/hauling-backend/internal/http/middleware"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	orderHandler *handlers.OrderHandler,
	workHandler *handlers.WorkHandler,
	paymentHandler *handlers.PaymentHandler,
	ticketHandler *handlers.TicketHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// Аутентификация. Отправка SMS кода под жёстким rate limit.
	authGroup := api.Group("/auth")
	{
		smsRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		authGroup.POST("/send-code", smsRateLimit, authHandler.SendCode)
		authGroup.POST("/verify-code", smsRateLimit, authHandler.VerifyCode)
		authGroup.POST("/register/client", authHandler.RegisterClient)
		authGroup.POST("/register/executor", authHandler.RegisterExecutor)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.POST("/switch-role", authHandler.SwitchRole)
		protectedAuth.POST("/roles/client", authHandler.AddClientRole)
		protectedAuth.POST("/roles/executor", authHandler.AddExecutorRole)
		protectedAuth.DELETE("/account", authHandler.DeleteAccount)
	}

	// WebSocket авторизуется токеном в query.
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", profileHandler.GetProfile)
		protected.PATCH("/profile", profileHandler.UpdateProfile)
		protected.PATCH("/profile/vehicle",
			middleware.RequireRole(models.RoleExecutor), profileHandler.UpdateVehicle)

		// Заказы клиента.
		protected.POST("/orders",
			middleware.RequireRole(models.RoleClient, models.RoleAdmin), orderHandler.CreateOrder)
		protected.GET("/orders/my",
			middleware.RequireRole(models.RoleClient, models.RoleAdmin), orderHandler.ListMyOrders)

		// Заказы исполнителя.
		protected.GET("/orders/available",
			middleware.RequireRole(models.RoleExecutor), orderHandler.ListAvailable)
		protected.GET("/orders/active",
			middleware.RequireRole(models.RoleExecutor), orderHandler.ListActive)
		protected.GET("/orders/history",
			middleware.RequireRole(models.RoleExecutor), orderHandler.ListHistory)

		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.GetOrder)
		protected.POST("/orders/:id/accept", middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleExecutor), orderHandler.Accept)
		protected.POST("/orders/:id/start", middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleExecutor), orderHandler.Start)
		protected.POST("/orders/:id/complete", middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleExecutor), orderHandler.Complete)
		protected.POST("/orders/:id/cancel", middleware.UUIDValidator("id"), orderHandler.Cancel)

		// Оплата.
		protected.POST("/orders/:id/pay", middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleClient, models.RoleAdmin), paymentHandler.PayOrder)
		protected.GET("/orders/:id/payment", middleware.UUIDValidator("id"), paymentHandler.GetOrderPayment)

		// Смена исполнителя.
		work := protected.Group("/work")
		work.Use(middleware.RequireRole(models.RoleExecutor))
		{
			work.POST("/start", workHandler.StartWork)
			work.POST("/stop", workHandler.StopWork)
			work.POST("/heartbeat", workHandler.Heartbeat)
		}

		// Баланс исполнителя.
		balance := protected.Group("/balance")
		balance.Use(middleware.RequireRole(models.RoleExecutor))
		{
			balance.GET("", paymentHandler.GetBalance)
			balance.POST("/deposit", paymentHandler.CreateDeposit)
			balance.POST("/withdraw", paymentHandler.CreateWithdrawal)
			balance.GET("/transactions", paymentHandler.ListTransactions)
			balance.GET("/withdrawals", paymentHandler.ListWithdrawals)
		}

		// Поддержка.
		protected.POST("/tickets", ticketHandler.CreateTicket)
		protected.GET("/tickets", ticketHandler.ListTickets)
		protected.GET("/tickets/:id", middleware.UUIDValidator("id"), ticketHandler.GetTicket)
		protected.POST("/tickets/:id/messages", middleware.UUIDValidator("id"), ticketHandler.AddMessage)
		protected.POST("/tickets/:id/close", middleware.UUIDValidator("id"), ticketHandler.CloseTicket)

		// Уведомления.
		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)

		// Документы.
		protected.POST("/media/documents", mediaHandler.UploadDocument)
		protected.GET("/media/documents/*path", mediaHandler.GetDocument)
	}

	// Вебхук платёжного шлюза, без пользовательской авторизации.
	api.POST("/payments/deposits/confirm", paymentHandler.ConfirmDeposit)

	return r
}
