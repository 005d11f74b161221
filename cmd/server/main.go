package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/studgig-backend/internal/config"
	"github.com/ignatzorin/studgig-backend/internal/db"
	httpHandlers "github.com/ignatzorin/studgig-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/studgig-backend/internal/http/router"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/payment"
	"github.com/ignatzorin/studgig-backend/internal/repository"
	"github.com/ignatzorin/studgig-backend/internal/repository/memory"
	"github.com/ignatzorin/studgig-backend/internal/sequence"
	"github.com/ignatzorin/studgig-backend/internal/service"
	"github.com/ignatzorin/studgig-backend/internal/worker"
	"github.com/ignatzorin/studgig-backend/internal/ws"
)

// stores набор хранилищ выбранного драйвера.
type stores struct {
	ledger        service.LedgerRepository
	escrow        service.EscrowRepository
	interactions  service.InteractionRepository
	works         service.WorkAssignmentRepository
	invoices      service.InvoiceRepository
	subjects      service.SubjectRepository
	users         service.UserRepository
	notifications service.NotificationRepository
	sequencer     service.InvoiceSequencer
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug", false)
	} else {
		logger.Init("info", true)
	}

	var dbConn *sqlx.DB
	var st stores
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		st = stores{
			ledger:        store,
			escrow:        store,
			interactions:  store,
			works:         store,
			invoices:      store,
			subjects:      store,
			users:         store,
			notifications: memory.NewNotificationStore(),
			sequencer:     memory.NewSequencer(),
		}
		logger.Log.Warn("main: используется хранилище в памяти, данные не сохраняются между запусками")
	default:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}
		st = postgresStores(dbConn)
	}

	if cfg.InvoiceSequencer == config.InvoiceSequencerRedis {
		client, err := sequence.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("main: ошибка подключения к redis: %v", err)
		}
		defer closeRedis(client)
		st.sequencer = sequence.NewRedisSequencer(client)
	}

	// Вебсокеты и доставка уведомлений.
	hub := ws.NewHub(ctx)
	go hub.Run()

	dispatcher := service.NewNotificationDispatcher(st.notifications, hub, cfg.NotificationQueueSize, cfg.NotificationWorkers)
	dispatcher.Start(ctx)

	// Платёжные шлюзы.
	gatewayHTTP := &http.Client{Timeout: cfg.PaymentInitiateTimeout}
	gateways := make([]payment.Provider, 0, len(cfg.PaymentGateways))
	for _, gw := range cfg.PaymentGateways {
		gateways = append(gateways, payment.NewGatewayClient(gatewayHTTP, gw, cfg.PaymentCallbackBaseURL))
	}
	providers := payment.NewRegistry(gateways...)
	logger.Log.WithFields(map[string]interface{}{
		"gateways": providers.Names(),
	}).Info("main: платёжные шлюзы подключены")

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	directory := service.NewDirectory(st.subjects, st.users, service.NewCacheService())

	ledgerService := service.NewLedgerService(st.ledger, providers, directory, dispatcher, cfg.PaymentInitiateTimeout)
	escrowService := service.NewEscrowService(st.escrow, dispatcher)
	invoiceService := service.NewInvoiceService(st.invoices, st.sequencer, directory, dispatcher, cfg.InvoiceDueDays)
	workService := service.NewWorkAssignmentService(st.works, directory, invoiceService, escrowService, dispatcher)
	interactionService := service.NewInteractionService(st.interactions, directory, workService, dispatcher)
	notificationService := service.NewNotificationService(st.notifications)

	// Фоновые задачи.
	depositExpirer := worker.NewDepositExpirer(ledgerService, cfg.SweepInterval, cfg.PendingDepositTTL)
	overdueMarker := worker.NewOverdueInvoiceMarker(invoiceService, cfg.SweepInterval)
	depositExpirer.Start(ctx)
	overdueMarker.Start(ctx)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, tokenManager, httpRouter.Handlers{
		Health:       httpHandlers.NewHealthHandler(dbConn, cfg.StorageDriver),
		Payment:      httpHandlers.NewPaymentHandler(ledgerService),
		Escrow:       httpHandlers.NewEscrowHandler(escrowService),
		Interaction:  httpHandlers.NewInteractionHandler(interactionService),
		Work:         httpHandlers.NewWorkAssignmentHandler(workService),
		Invoice:      httpHandlers.NewInvoiceHandler(invoiceService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithFields(map[string]interface{}{
		"port":      cfg.HTTPPort,
		"storage":   cfg.StorageDriver,
		"sequencer": cfg.InvoiceSequencer,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Дожидаемся фоновых задач и доставки накопленных уведомлений.
	<-depositExpirer.Done()
	<-overdueMarker.Done()
	dispatcher.Wait()
	logger.Log.Info("main: сервер остановлен")
}

func postgresStores(conn *sqlx.DB) stores {
	users := repository.NewUserRepository(conn)
	return stores{
		ledger:        repository.NewLedgerRepository(conn),
		escrow:        repository.NewEscrowRepository(conn),
		interactions:  repository.NewInteractionRepository(conn),
		works:         repository.NewWorkAssignmentRepository(conn),
		invoices:      repository.NewInvoiceRepository(conn),
		subjects:      repository.NewSubjectRepository(conn),
		users:         users,
		notifications: repository.NewNotificationRepository(conn),
		sequencer:     repository.NewInvoiceSequenceRepository(conn),
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("main: ошибка закрытия redis: %v", err)
	}
}
