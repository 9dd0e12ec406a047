// Package redis provides a Redis-backed persistence implementation for workflows.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "operion:workflow:"

// Persistence stores each workflow as a JSON string keyed by logical name, plus a sorted set
// index of every stored name.
type Persistence struct {
	client *backend.Client
	prefix string
}

var _ persistence.Persistence = (*Persistence)(nil)

type Option func(*Persistence)

// WithPrefix sets the key prefix for workflow documents.
func WithPrefix(prefix string) Option {
	return func(p *Persistence) {
		p.prefix = prefix
	}
}

// New connects to the server described by a redis:// URL.
func New(url string, opts ...Option) (*Persistence, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Persistence {
	p := &Persistence{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Persistence) key(logicalName string) string {
	return p.prefix + logicalName
}

func (p *Persistence) indexKey() string {
	return p.prefix + "index"
}

// Workflows returns every stored workflow ordered by logical name. Index entries whose document
// has gone missing are skipped.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	// All members share score 0, so the set is ordered lexicographically.
	names, err := p.client.ZRange(ctx, p.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(names))

	for _, name := range names {
		workflow, err := p.WorkflowByLogicalName(ctx, name)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (p *Persistence) WorkflowByLogicalName(ctx context.Context, logicalName string) (*models.Workflow, error) {
	const op = "WorkflowByLogicalName"

	if persistence.CheckLogicalName(logicalName) != nil {
		return nil, persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
	}

	val, err := p.client.Get(ctx, p.key(logicalName)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to get workflow %s from redis: %w", logicalName, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal([]byte(val), &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", logicalName, err)
	}

	return &workflow, nil
}

// SaveWorkflow writes the document and its index entry in one MULTI/EXEC transaction.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := persistence.CheckLogicalName(workflow.LogicalName); err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.LogicalName, err)
	}

	stored := *workflow
	stored.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.LogicalName, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, p.key(workflow.LogicalName), data, 0)
		pipe.ZAdd(ctx, p.indexKey(), backend.Z{Score: 0, Member: workflow.LogicalName})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow %s to redis: %w", workflow.LogicalName, err)
	}

	workflow.UpdatedAt = stored.UpdatedAt

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, logicalName string) error {
	const op = "DeleteWorkflow"

	if persistence.CheckLogicalName(logicalName) != nil {
		return persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
	}

	var deleted *backend.IntCmd

	_, err := p.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		deleted = pipe.Del(ctx, p.key(logicalName))
		pipe.ZRem(ctx, p.indexKey(), logicalName)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s from redis: %w", logicalName, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the redis client.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}
