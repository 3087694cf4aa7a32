package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vyvozim/hauling-backend/internal/config"
	"github.com/vyvozim/hauling-backend/internal/db"
	"github.com/vyvozim/hauling-backend/internal/goroutine"
	httpHandlers "github.com/vyvozim/hauling-backend/internal/http/handlers"
	httpRouter "github.com/vyvozim/hauling-backend/internal/http/router"
	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/service"
	"github.com/vyvozim/hauling-backend/internal/sms"
	"github.com/vyvozim/hauling-backend/internal/storage"
	"github.com/vyvozim/hauling-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	mediaStorage, err := storage.NewMediaStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	smsSender := sms.NewLogSender(logger.Log)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	ticketRepo := repository.NewTicketRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGo(hub.Run)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	authService := service.NewAuthService(userRepo, orderRepo, smsSender, tokenManager, cfg.SMSCodeTTL)
	availabilityService := service.NewAvailabilityService(userRepo, notificationService, cfg.MinWorkBalance, cfg.InactivityTimeout)
	orderService := service.NewOrderService(orderRepo, availabilityService, userRepo, notificationService)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, notificationService, service.PaymentConfig{
		MinDepositAmount:  cfg.MinDepositAmount,
		MinWithdrawAmount: cfg.MinWithdrawAmount,
		CommissionPercent: cfg.CommissionPercent,
		GatewayBaseURL:    cfg.GatewayBaseURL,
	})
	ticketService := service.NewTicketService(ticketRepo, notificationService)

	// Сторож автоснятия со смены по бездействию.
	goroutine.SafeGoWithContext(ctx, func(watchdogCtx context.Context) {
		availabilityService.RunWatchdog(watchdogCtx, cfg.WatchdogInterval)
	})

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(authService, userRepo)
	orderHandler := httpHandlers.NewOrderHandler(orderService)
	workHandler := httpHandlers.NewWorkHandler(availabilityService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService, userRepo)
	ticketHandler := httpHandlers.NewTicketHandler(ticketService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager, availabilityService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg,
		authHandler, profileHandler, orderHandler, workHandler, paymentHandler,
		ticketHandler, notificationHandler, mediaHandler, wsHandler, healthHandler,
		tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
