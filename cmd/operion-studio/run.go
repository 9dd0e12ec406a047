package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/channels/kafka"
	"github.com/dukex/operion-studio/pkg/cmd"
	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/log"
	"github.com/dukex/operion-studio/pkg/metadata"
	"github.com/dukex/operion-studio/pkg/otelhelper"
	"github.com/dukex/operion-studio/pkg/services"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort         = 9099
	defaultKafkaBrokers = "localhost:9092"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the studio API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Workflow storage URL (file path, postgres:// or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "execution-url",
				Usage:    "Base URL of the workflow execution endpoint used for test runs",
				Required: true,
				Sources:  cli.EnvVars("EXECUTION_URL"),
			},
			&cli.DurationFlag{
				Name:    "execution-timeout",
				Usage:   "Timeout for a single test run request",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("EXECUTION_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "metadata-path",
				Usage:   "YAML or JSON file describing record entities and fields",
				Sources: cli.EnvVars("METADATA_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   defaultKafkaBrokers,
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.IntFlag{
				Name:    "history-limit",
				Usage:   "Undo steps kept per session",
				Value:   editor.DefaultHistoryLimit,
				Sources: cli.EnvVars("HISTORY_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "coalesce-window",
				Usage:   "Window in which consecutive edits of one field share an undo step",
				Value:   editor.DefaultCoalesceWindow,
				Sources: cli.EnvVars("COALESCE_WINDOW"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Setup(command.String("log-level"))

			logger := log.WithModule("studio")

			logger.InfoContext(ctx, "Initializing Operion Studio")

			tracer := otelhelper.NoopTracer()

			if command.Bool("tracing") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "operion-studio")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			entities, err := metadata.Load(command.String("metadata-path"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), kafka.ParseBrokers(command.String("kafka-brokers")), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			executor, err := execution.NewHTTPExecutor(execution.HTTPConfig{
				BaseURL: command.String("execution-url"),
				Timeout: command.Duration("execution-timeout"),
			}, logger)
			if err != nil {
				return err
			}

			templates := catalog.Default()

			studio := services.NewStudio(services.Config{
				Catalog:        templates,
				Persistence:    persistence,
				Tester:         execution.NewTester(executor, logger),
				Publisher:      eventBus,
				Tracer:         tracer,
				Metadata:       entities,
				HistoryLimit:   command.Int("history-limit"),
				CoalesceWindow: command.Duration("coalesce-window"),
				Logger:         logger,
			})

			api := NewAPI(logger, studio, templates)

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)

				return err
			}

			return nil
		},
	}
}
