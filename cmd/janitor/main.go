package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/janitorbot/janitor/engine"
	"github.com/janitorbot/janitor/pagemeta"
	"github.com/janitorbot/janitor/reddit"
	"github.com/janitorbot/janitor/store"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "janitor",
		Usage:   "rule-driven reddit moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the moderation loop",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/janitor/janitor.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
		&cli.StringFlag{
			Name:    "reddit-username",
			EnvVars: []string{"JANITOR_REDDIT_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "reddit-password",
			EnvVars: []string{"JANITOR_REDDIT_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "user-agent",
			Value:   "janitor moderation bot",
			EnvVars: []string{"JANITOR_USER_AGENT"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"JANITOR_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "sleep between full runs",
			Value:   30 * time.Second,
			EnvVars: []string{"JANITOR_POLL_INTERVAL"},
		},
		&cli.BoolFlag{
			Name:    "run-once",
			Usage:   "do a single full run, then exit",
			EnvVars: []string{"JANITOR_RUN_ONCE"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("janitor"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		db, err := store.OpenDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		st, err := store.NewGormStore(db)
		if err != nil {
			return err
		}

		username := cctx.String("reddit-username")
		if username == "" || cctx.String("reddit-password") == "" {
			return fmt.Errorf("reddit credentials are required")
		}
		client := reddit.NewClient(logger, cctx.String("user-agent"))

		eng := &engine.Engine{
			Logger:      logger,
			Store:       st,
			Source:      reddit.NewSource(client),
			Platform:    reddit.NewActor(client),
			Accounts:    reddit.NewAccounts(client),
			MemeNames:   pagemeta.NewFetcher(logger, cctx.String("user-agent")),
			BotUsername: username,
		}

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), nil); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		loggedIn := false
		for {
			runStart := time.Now()

			// sessions expire; log in lazily and again after failures
			if !loggedIn {
				if err := client.Login(ctx, username, cctx.String("reddit-password")); err != nil {
					logger.Error("login failed, skipping run", "err", err)
				} else {
					loggedIn = true
				}
			}
			if loggedIn {
				if err := eng.RunOnce(ctx); err != nil {
					logger.Error("run failed", "err", err)
					loggedIn = false
				}
			}

			if cctx.Bool("run-once") {
				return nil
			}
			if sleep := cctx.Duration("poll-interval") - time.Since(runStart); sleep > 0 {
				time.Sleep(sleep)
			}
		}
	},
}
