package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/opuslink/opuslink/internal/cache"
	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/env"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/file"
	"github.com/opuslink/opuslink/internal/gateway"
	"github.com/opuslink/opuslink/internal/helper"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/smtp"
	"github.com/opuslink/opuslink/internal/stream"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	FileUploader *file.FileUploader
	Gateway      *gateway.Gateway

	Escrow        *service.EscrowService
	WorkLedger    *service.WorkLedgerService
	Payments      *service.PaymentService
	Notifications *service.NotificationService

	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/opuslink")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "OpusLink <no_reply@opuslink.example>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")
	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Gateway.ProcessingDelay = time.Duration(env.GetInt("GATEWAY_DELAY_MS", 1500)) * time.Millisecond
	cfg.Gateway.SuccessRate = env.GetFloat("GATEWAY_SUCCESS_RATE", 0.8)
	cfg.Gateway.Fees = config.DefaultFeeBands()

	cfg.Payout = config.DefaultPayoutPolicy()
	cfg.Payout.Version = env.GetInt("PAYOUT_POLICY_VERSION", cfg.Payout.Version)

	cfg.Ledger.RetentionDays = env.GetInt("LEDGER_RETENTION_DAYS", 365)
	cfg.Ledger.SweepInterval = time.Duration(env.GetInt("LEDGER_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Mailer: mailer,
	}

	app.helper = helper.New(&cfg.BaseURL, &app.WG, nil)
	app.errorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger, app.helper)
	// the error handler needs the helper and the helper reports through the
	// error handler, so the reporter is attached after both exist
	app.helper.SetReporter(app.errorHandler)

	app.Kafka = stream.New(cfg.KafkaServers, logger)
	app.Cache = cache.New(cfg.RedisServer, 0)
	app.FileUploader = file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)
	app.Gateway = gateway.New(cfg.Gateway)

	app.Notifications = service.NewNotificationService(db, logger)
	app.Escrow = service.NewEscrowService(db, app.Cache, logger)
	app.WorkLedger = service.NewWorkLedgerService(db, cfg.Payout, app.Notifications, logger)
	app.Payments = service.NewPaymentService(db, app.Escrow, app.Gateway, app.Kafka, app.Notifications, cfg.Payout, logger)

	return app, nil
}
