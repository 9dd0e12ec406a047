package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/eventbus"
	"github.com/dukex/operion-studio/pkg/events"
	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/otelhelper"
	"github.com/dukex/operion-studio/pkg/persistence"
	"github.com/dukex/operion-studio/pkg/steptree"
	"github.com/dukex/operion-studio/pkg/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config wires a Studio. Publisher, Tracer, Clock and Logger are optional.
type Config struct {
	Catalog        *catalog.Catalog
	Persistence    persistence.Persistence
	Tester         *execution.Tester
	Publisher      eventbus.EventPublisher
	Tracer         trace.Tracer
	Metadata       *models.MetadataContext
	HistoryLimit   int
	CoalesceWindow time.Duration
	Clock          func() time.Time
	Logger         *slog.Logger
}

type sessionEntry struct {
	mu      sync.Mutex
	session *editor.Session
}

// Studio keeps the open editor sessions. Each session has its own lock, held for the whole of
// an edit and its re-validation, and released while a save or test run is on the network.
type Studio struct {
	catalog     *catalog.Catalog
	validator   *validation.Validator
	persistence persistence.Persistence
	tester      *execution.Tester
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	clock       func() time.Time
	logger      *slog.Logger

	historyLimit   int
	coalesceWindow time.Duration

	mu       sync.RWMutex
	metadata *models.MetadataContext
	sessions map[string]*sessionEntry
}

func NewStudio(cfg Config) *Studio {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}

	if cfg.Tracer == nil {
		cfg.Tracer = otelhelper.NoopTracer()
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Studio{
		catalog:        cfg.Catalog,
		validator:      validation.New(cfg.Catalog),
		persistence:    cfg.Persistence,
		tester:         cfg.Tester,
		publisher:      cfg.Publisher,
		tracer:         cfg.Tracer,
		clock:          cfg.Clock,
		logger:         cfg.Logger.With("module", "studio"),
		historyLimit:   cfg.HistoryLimit,
		coalesceWindow: cfg.CoalesceWindow,
		metadata:       cfg.Metadata,
		sessions:       make(map[string]*sessionEntry),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Studio) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (s *Studio) Templates(filter catalog.Filter) []*catalog.Template {
	return s.catalog.List(filter)
}

func (s *Studio) Categories() []string {
	return s.catalog.Categories()
}

// Workflows lists the stored workflows.
func (s *Studio) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.persistence.Workflows(ctx)
}

// Open starts a session on the stored workflow, or on a blank document when none is stored
// under logicalName yet.
func (s *Studio) Open(ctx context.Context, logicalName string) (*SessionState, error) {
	const op = "Open"

	if err := persistence.CheckLogicalName(logicalName); err != nil {
		return nil, newServiceError(op, "invalid_logical_name", "logical name must match [a-z0-9_]+", ErrInvalidRequest)
	}

	var doc models.Workflow

	stored, err := s.persistence.WorkflowByLogicalName(ctx, logicalName)

	switch {
	case err == nil:
		doc = *stored
	case persistence.IsWorkflowNotFound(err):
		doc = models.NewWorkflow(logicalName)
	default:
		return nil, newServiceError(op, "load_failed", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := editor.NewSession(doc, editor.Options{
		Catalog:        s.catalog,
		Validator:      s.validator,
		Metadata:       s.metadata,
		HistoryLimit:   s.historyLimit,
		CoalesceWindow: s.coalesceWindow,
		Clock:          s.clock,
		Logger:         s.logger,
	})

	id := uuid.New().String()
	s.sessions[id] = &sessionEntry{session: session}

	s.logger.InfoContext(ctx, "Opened session", "session_id", id, "workflow", logicalName, "stored", stored != nil)

	return stateOf(id, session), nil
}

// Close discards a session and its history.
func (s *Studio) Close(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return newServiceError("Close", "session_not_found", "", ErrSessionNotFound)
	}

	delete(s.sessions, sessionID)

	return nil
}

// Len returns the number of open sessions.
func (s *Studio) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// State returns the current snapshot of a session.
func (s *Studio) State(sessionID string) (*SessionState, error) {
	return s.Edit(sessionID, func(*editor.Session) error { return nil })
}

// Edit runs fn with exclusive access to the session and returns the resulting state. When fn
// fails the state is still returned alongside the error.
func (s *Studio) Edit(sessionID string, fn func(*editor.Session) error) (*SessionState, error) {
	entry, err := s.entry("Edit", sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	err = fn(entry.session)

	return stateOf(sessionID, entry.session), err
}

// UpdateMetadata replaces the metadata context for new sessions and re-validates open ones.
func (s *Studio) UpdateMetadata(metadata *models.MetadataContext) {
	s.mu.Lock()
	s.metadata = metadata
	entries := make([]*sessionEntry, 0, len(s.sessions))

	for _, entry := range s.sessions {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		entry.session.UpdateMetadata(metadata)
		entry.mu.Unlock()
	}
}

// Save writes the session document through persistence. It is refused while the document has
// validation errors or another save is pending, unless retry is set.
func (s *Studio) Save(ctx context.Context, sessionID string, retry bool) (*SessionState, error) {
	const op = "Save"

	entry, err := s.entry(op, sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	token, doc, err := entry.session.BeginSave(retry)
	entry.mu.Unlock()

	if err != nil {
		return s.stateWith(sessionID, entry, err)
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "studio.save",
		attribute.String(otelhelper.SessionIDKey, sessionID),
		attribute.String(otelhelper.WorkflowLogicalNameKey, doc.LogicalName),
		attribute.Int64(otelhelper.RequestTokenKey, int64(token)),
	)
	defer span.End()

	saveErr := s.persistence.SaveWorkflow(ctx, &doc)
	if saveErr != nil {
		otelhelper.SetError(span, saveErr)
		s.logger.ErrorContext(ctx, "Failed to save workflow", "session_id", sessionID, "workflow", doc.LogicalName, "error", saveErr)
	}

	entry.mu.Lock()
	accepted := entry.session.CompleteSave(token, saveErr)
	state := stateOf(sessionID, entry.session)
	entry.mu.Unlock()

	if !accepted {
		return state, newServiceError(op, "superseded", "", ErrRequestSuperseded)
	}

	if saveErr != nil {
		return state, newServiceError(op, "save_failed", "", saveErr)
	}

	s.logger.InfoContext(ctx, "Saved workflow", "session_id", sessionID, "workflow", doc.LogicalName)
	s.publish(ctx, doc.LogicalName, events.NewWorkflowSaved(sessionID, &doc, len(steptree.IDs(doc.Steps))))

	return state, nil
}

// Execute sends a test run. With useDraft the current, possibly unsaved, document is sent along;
// otherwise the endpoint runs the stored version. Malformed payloads fail before the request gate
// is touched.
func (s *Studio) Execute(ctx context.Context, sessionID, payload string, useDraft, retry bool) (*models.RunResult, *SessionState, error) {
	const op = "Execute"

	if _, err := execution.ParsePayload(payload); err != nil {
		return nil, nil, err
	}

	entry, err := s.entry(op, sessionID)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	token, err := entry.session.BeginExecute(retry)
	doc := entry.session.Document()
	entry.mu.Unlock()

	if err != nil {
		state, err := s.stateWith(sessionID, entry, err)

		return nil, state, err
	}

	var draft *models.Workflow
	if useDraft {
		draft = &doc
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "studio.execute",
		attribute.String(otelhelper.SessionIDKey, sessionID),
		attribute.String(otelhelper.WorkflowLogicalNameKey, doc.LogicalName),
		attribute.Bool(otelhelper.DraftKey, useDraft),
		attribute.Int64(otelhelper.RequestTokenKey, int64(token)),
	)
	defer span.End()

	result, runErr := s.tester.Execute(ctx, doc.LogicalName, payload, draft)
	if runErr != nil {
		otelhelper.SetError(span, runErr)
	} else {
		span.SetAttributes(attribute.String(otelhelper.RunIDKey, result.RunID))
	}

	entry.mu.Lock()
	accepted := entry.session.CompleteExecute(token, result, runErr)
	state := stateOf(sessionID, entry.session)
	entry.mu.Unlock()

	if !accepted {
		return nil, state, newServiceError(op, "superseded", "", ErrRequestSuperseded)
	}

	if runErr != nil {
		return nil, state, newServiceError(op, "execution_failed", "", runErr)
	}

	s.publish(ctx, doc.LogicalName, events.NewWorkflowTestExecuted(sessionID, doc.LogicalName, useDraft, result, s.clock()))

	return result, state, nil
}

func (s *Studio) entry(op, sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, newServiceError(op, "session_not_found", "", ErrSessionNotFound)
	}

	return entry, nil
}

func (s *Studio) stateWith(sessionID string, entry *sessionEntry, err error) (*SessionState, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	return stateOf(sessionID, entry.session), err
}

// publish is best effort: a failed notification never fails the save or run it reports.
func (s *Studio) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
