package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/cmd"
	"github.com/dukex/operion-studio/pkg/log"
	"github.com/dukex/operion-studio/pkg/metadata"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/validation"
	"github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored workflows, or workflow documents given as arguments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Workflow storage URL, read when no files are given",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "metadata-path",
				Usage:   "YAML or JSON file describing record entities and fields",
				Sources: cli.EnvVars("METADATA_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			entities, err := metadata.Load(command.String("metadata-path"))
			if err != nil {
				return err
			}

			workflows, err := loadWorkflows(ctx, command)
			if err != nil {
				return err
			}

			invalid := report(os.Stdout, validation.New(catalog.Default()), entities, workflows)
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidWorkflows, invalid, len(workflows))
			}

			return nil
		},
	}
}

func loadWorkflows(ctx context.Context, command *cli.Command) ([]*models.Workflow, error) {
	if command.Args().Len() > 0 {
		workflows := make([]*models.Workflow, 0, command.Args().Len())

		for _, path := range command.Args().Slice() {
			workflow, err := readWorkflowFile(path)
			if err != nil {
				return nil, err
			}

			workflows = append(workflows, workflow)
		}

		return workflows, nil
	}

	if command.String("database-url") == "" {
		return nil, errors.New("either workflow files or --database-url are required")
	}

	logger := log.WithModule("validate")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	return persistence.Workflows(ctx)
}

func readWorkflowFile(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &workflow, nil
}

// report prints the issues of every workflow and returns how many have blocking errors.
func report(w io.Writer, validator *validation.Validator, entities *models.MetadataContext, workflows []*models.Workflow) int {
	_, _ = fmt.Fprintln(w, "Workflow Validation Results:")
	_, _ = fmt.Fprintln(w, "============================")

	invalid := 0

	for _, workflow := range workflows {
		issues := validator.Validate(*workflow, entities)

		status := "OK"
		if !validation.CanSave(issues) {
			status = "INVALID"
			invalid++
		}

		_, _ = fmt.Fprintf(w, "\n%s [%s] %d error(s), %d issue(s)\n",
			workflow.LogicalName, status, validation.ErrorCount(issues), len(issues))

		for _, issue := range issues {
			_, _ = fmt.Fprintf(w, "  %-7s %-24s %-16s %s\n", issue.Severity, issue.Code, issue.Path, issue.Message)
		}
	}

	_, _ = fmt.Fprintf(w, "\n%d workflow(s), %d invalid\n", len(workflows), invalid)

	return invalid
}
