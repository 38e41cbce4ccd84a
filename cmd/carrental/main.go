package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	bookingapp "carrental/internal/app/handlers/booking"
	carsapp "carrental/internal/app/handlers/cars"
	paymentapp "carrental/internal/app/handlers/payment"
	"carrental/internal/app/middleware"
	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/app/policies"
	"carrental/internal/app/queries"
	appuow "carrental/internal/app/uow"
	kafkabroker "carrental/internal/infra/broker/kafka"
	"carrental/internal/infra/config"
	mongostore "carrental/internal/infra/db/mongo"
	ginserver "carrental/internal/infra/http/gin"
	"carrental/internal/infra/obs"
	infraoutbox "carrental/internal/infra/outbox"
	"carrental/internal/infra/payment"
	"carrental/internal/infra/security"
	"carrental/internal/infra/storage/memory"
	"carrental/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = "memory"
		cfg.PaymentMode = "stub"
		cfg.Currency = "USD"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, app.consumerTopics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("payment consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "payment", cfg.PaymentMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers       ginserver.Handlers
	worker         *infraoutbox.Worker
	consumer       *kafkabroker.PaymentConsumer
	consumerTopics []string
	ready          func() error
	closers        []func(context.Context) error
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range a.closers {
		if err := fn(ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory appuow.UoWFactory
		box        appoutbox.Outbox
		store      infraoutbox.Store
		idStore    middleware.IdempotencyStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		carRepo := mongostore.NewCarRepository(client.DB)
		bookingRepo := mongostore.NewBookingRepository(client.DB)
		uowFactory = mongostore.Factory{DB: client.DB, CarRepo: carRepo, BookingRepo: bookingRepo}
		outboxStore := mongostore.NewOutboxStore(client.DB)
		box, store = outboxStore, outboxStore
		mongoIdem := mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		if err := mongoIdem.EnsureIndexes(ctx); err != nil {
			logger.Warn("idempotency index setup failed", "error", err)
		}
		idStore = mongoIdem
	default:
		carRepo := memory.NewCarRepository()
		bookingRepo := memory.NewBookingRepository()
		uowFactory = memory.NewFactory(carRepo, bookingRepo)
		memBox := memory.NewOutbox()
		box, store = memBox, memBox
		idStore = memory.NewIdempotencyStore()
	}

	var processor policies.PaymentsPort
	if cfg.PaymentMode == "http" {
		processor = &payment.HTTPProcessor{
			Client:  &http.Client{Timeout: 10 * time.Second},
			BaseURL: cfg.PaymentAPIURL,
			APIKey:  cfg.PaymentAPIKey,
			Logger:  logger,
		}
	} else {
		processor = payment.NewStubProcessor()
	}

	var uploader policies.UploaderPort = s3.NoopImageStore{}
	if cfg.S3Endpoint != "" {
		images, err := s3.NewImageStore(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicEndpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
		}, logger)
		if err != nil {
			logger.Warn("image store unavailable", "error", err)
		} else {
			uploader = images
		}
	}

	encoder := appoutbox.JSONEventEncoder{}
	reconciler := &paymentapp.Reconciler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder, Logger: logger}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder})
	commands.RegisterHandler(commandBus, bookingapp.ApproveBookingCommand{}.Key(), &bookingapp.ApproveBookingHandler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder, Logger: logger})
	commands.RegisterHandler(commandBus, bookingapp.RejectBookingCommand{}.Key(), &bookingapp.RejectBookingHandler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder, Logger: logger})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder, Logger: logger})
	commands.RegisterHandler(commandBus, carsapp.CreateCarCommand{}.Key(), &carsapp.CreateCarHandler{UoWFactory: uowFactory, Logger: logger})
	commands.RegisterHandler(commandBus, carsapp.UpdateCarCommand{}.Key(), &carsapp.UpdateCarHandler{UoWFactory: uowFactory, Logger: logger})
	commands.RegisterHandler(commandBus, carsapp.DeleteCarCommand{}.Key(), &carsapp.DeleteCarHandler{UoWFactory: uowFactory, Logger: logger})

	// Payment commands and image uploads call external services mid-flight,
	// so their bus carries no transaction middleware; handlers open and close
	// their own units around the network hops.
	edgeBus := commands.NewInMemoryBus()
	commands.RegisterHandler(edgeBus, paymentapp.CreateIntentCommand{}.Key(), &paymentapp.CreateIntentHandler{UoWFactory: uowFactory, Processor: processor, Logger: logger})
	commands.RegisterHandler(edgeBus, paymentapp.ConfirmPaymentCommand{}.Key(), &paymentapp.ConfirmPaymentHandler{UoWFactory: uowFactory, Processor: processor, Reconciler: reconciler, Logger: logger})
	commands.RegisterHandler(edgeBus, paymentapp.NotificationCommand{}.Key(), &paymentapp.NotificationHandler{Reconciler: reconciler, Logger: logger})
	commands.RegisterHandler(edgeBus, carsapp.AttachImageCommand{}.Key(), &carsapp.AttachImageHandler{UoWFactory: uowFactory, Uploader: uploader, Logger: logger})

	queryBus := queries.NewInMemoryBus()
	listHandler := &bookingapp.ListBookingsHandler{UoWFactory: uowFactory}
	queries.RegisterHandler(queryBus, bookingapp.ListMyBookingsQuery{}.Key(), queries.HandlerFunc[bookingapp.ListMyBookingsQuery, dto.BookingCollection](listHandler.HandleMine))
	queries.RegisterHandler(queryBus, bookingapp.ListAllBookingsQuery{}.Key(), queries.HandlerFunc[bookingapp.ListAllBookingsQuery, dto.BookingCollection](listHandler.HandleAll))
	queries.RegisterHandler(queryBus, carsapp.SearchCarsQuery{}.Key(), &carsapp.SearchCarsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, carsapp.GetCarQuery{}.Key(), &carsapp.GetCarHandler{UoWFactory: uowFactory, Logger: logger})
	queries.RegisterHandler(queryBus, paymentapp.StatusQuery{}.Key(), &paymentapp.StatusHandler{UoWFactory: uowFactory})

	coreChain := middleware.ChainCommands(
		commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	edgeChain := middleware.ChainCommands(
		edgeBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.OutboxFlush(box),
	)
	queryChain := middleware.ChainQueries(queryBus)

	authMW := ginserver.AuthMiddleware{
		Codec:  security.TokenCodec{Secret: []byte(cfg.AuthTokenSecret)},
		Logger: logger,
	}
	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{Commands: coreChain, Queries: queryChain},
		Payment: ginserver.PaymentHandler{
			Commands: edgeChain,
			Queries:  queryChain,
			Verifier: payment.WebhookVerifier{Secret: []byte(cfg.PaymentWebhookKey)},
			Logger:   logger,
		},
		Car:            ginserver.CarHandler{Commands: coreChain, Uploads: edgeChain, Queries: queryChain},
		AuthMiddleware: authMW.Handle,
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		app.worker = &infraoutbox.Worker{
			Store:       store,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "app://carrental",
			Backoff:     cfg.RetryBackoff,
		}

		consumer, err := kafkabroker.NewPaymentConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, edgeChain, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
		app.consumer = consumer
		app.consumerTopics = []string{cfg.KafkaTopicPrefix + cfg.KafkaPaymentsTopic}
	}

	return app, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
