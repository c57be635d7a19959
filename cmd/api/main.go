package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/opuslink/opuslink/internal/app"
	seeders "github.com/opuslink/opuslink/internal/seeder"
	"github.com/opuslink/opuslink/internal/version"
	"github.com/opuslink/opuslink/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	seed := flag.Bool("seed", false, "seed demo accounts and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()

	if *seed {
		seeders.New(application.DB).Run()
		logger.Info("demo data seeded")
		return nil
	}
	defer application.Kafka.Close()
	defer application.Cache.Close()

	wk := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		DB:          application.DB,
		Payments:    application.Payments,
		Mailer:      application.Mailer,
		Config:      &application.Config,
		Logger:      logger,
	})

	go wk.PayoutWorker()
	go wk.SettlementWorker()
	go wk.FailureWorker()
	go wk.ArchiveWorker()

	return application.ServeHTTP()
}
