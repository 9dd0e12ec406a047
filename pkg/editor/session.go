// Package editor holds the state of one workflow editing session: the document, the focus and
// insert mode, the undo/redo history, the id generator, the current validation issues and the
// request gates for save and execute.
package editor

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/idgen"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/steptree"
	"github.com/dukex/operion-studio/pkg/validation"
)

// Options configures a session. Zero values select the defaults.
type Options struct {
	Catalog        *catalog.Catalog
	Validator      *validation.Validator
	Metadata       *models.MetadataContext
	HistoryLimit   int
	CoalesceWindow time.Duration
	Clock          func() time.Time
	Logger         *slog.Logger
}

// SettingsPatch changes document settings. Nil fields are left untouched.
type SettingsPatch struct {
	DisplayName *string
	Description *string
	MaxAttempts *int
	Enabled     *bool
}

// StepPatch changes fields of one step. Nil fields and an empty configuration are left untouched.
type StepPatch struct {
	Name          *string
	Configuration map[string]any
	Predicate     *string
}

// Session is a single-owner editing session. It is not safe for concurrent use; callers
// serialise access (see services.Studio).
//
// Every committed change re-runs validation, so Issues always describes Document.
type Session struct {
	doc        models.Workflow
	controller *Controller
	history    *History
	ids        *idgen.Generator
	catalog    *catalog.Catalog
	validator  *validation.Validator
	metadata   *models.MetadataContext
	issues     []models.ValidationIssue
	clock      func() time.Time
	logger     *slog.Logger

	revision      uint64
	lastRevision  uint64
	savedRevision uint64
	pendingSave   uint64

	save    *gate
	execute *gate
	lastRun *models.RunResult
}

// NewSession opens doc for editing. The id generator is seeded past every id already in doc.
func NewSession(doc models.Workflow, opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}

	if opts.Validator == nil {
		opts.Validator = validation.New(opts.Catalog)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.CoalesceWindow == 0 {
		opts.CoalesceWindow = DefaultCoalesceWindow
	}

	if doc.Steps == nil {
		doc.Steps = models.Steps{}
	}

	s := &Session{
		doc:        doc,
		controller: NewController(),
		ids:        idgen.NewAfter(steptree.IDs(doc.Steps)),
		catalog:    opts.Catalog,
		validator:  opts.Validator,
		metadata:   opts.Metadata,
		clock:      opts.Clock,
		logger:     opts.Logger.With("workflow", doc.LogicalName),
		save:       newGate(),
		execute:    newGate(),
	}

	s.history = NewHistory(s.snapshot(), opts.HistoryLimit, opts.CoalesceWindow)
	s.revalidate()

	return s
}

// Document returns a copy of the current document.
func (s *Session) Document() models.Workflow {
	return s.doc.Clone()
}

func (s *Session) Selection() models.Selection {
	return s.controller.Selection()
}

func (s *Session) Mode() models.InsertMode {
	return s.controller.Mode()
}

// Controller exposes the focus holder so observers can subscribe to it.
func (s *Session) Controller() *Controller {
	return s.controller
}

func (s *Session) Issues() []models.ValidationIssue {
	return slices.Clone(s.issues)
}

func (s *Session) ErrorCount() int {
	return validation.ErrorCount(s.issues)
}

func (s *Session) CanSave() bool {
	return validation.CanSave(s.issues)
}

func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

// Dirty reports whether the document changed since it was loaded or last saved.
func (s *Session) Dirty() bool {
	return s.revision != s.savedRevision
}

// Select focuses the trigger or an existing step. Changing focus ends any coalescing run.
func (s *Session) Select(selection models.Selection) error {
	if !selection.IsTrigger() && !steptree.Contains(s.doc.Steps, selection.StepID) {
		return &steptree.MutationError{Op: "select", StepID: selection.StepID, Err: steptree.ErrStepNotFound}
	}

	if selection != s.controller.Selection() {
		s.history.Seal()
	}

	s.controller.Select(selection)

	return nil
}

func (s *Session) SetMode(mode models.InsertMode) error {
	return s.controller.SetMode(mode)
}

// InsertTemplate inserts a new step built from the template using the current focus and insert
// mode. The new step becomes the focus. It returns the new step's id.
func (s *Session) InsertTemplate(templateID string) (string, error) {
	return s.InsertTemplateAt(templateID, s.controller.Mode(), s.controller.Selection())
}

// InsertTemplateAt inserts a new step built from the template at an explicit anchor.
func (s *Session) InsertTemplateAt(templateID string, mode models.InsertMode, selection models.Selection) (string, error) {
	template, ok := s.catalog.Get(templateID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	step := template.Instantiate(s.ids)

	doc, err := steptree.Insert(s.doc, step, mode, selection)
	if err != nil {
		return "", s.contractViolation(err)
	}

	s.apply(doc, models.SelectStep(step.StepID()))

	return step.StepID(), nil
}

// Move relocates a step and its subtree. The focus is kept.
func (s *Session) Move(id string, target models.Selection, mode models.InsertMode) error {
	doc, err := steptree.Move(s.doc, id, target, mode)
	if err != nil {
		return s.contractViolation(err)
	}

	s.apply(doc, s.controller.Selection())

	return nil
}

// Delete removes a step and its subtree. If the focus was inside the subtree it returns to the
// trigger.
func (s *Session) Delete(id string) error {
	doc, err := steptree.Delete(s.doc, id)
	if err != nil {
		return s.contractViolation(err)
	}

	s.apply(doc, s.controller.Selection())

	return nil
}

// Duplicate copies a step and its subtree right after the original and focuses the copy.
func (s *Session) Duplicate(id string) (string, error) {
	doc, copyID, err := steptree.Duplicate(s.doc, id, s.ids)
	if err != nil {
		return "", s.contractViolation(err)
	}

	s.apply(doc, models.SelectStep(copyID))

	return copyID, nil
}

func (s *Session) RenameStep(id, name string) error {
	return s.UpdateStep(id, StepPatch{Name: &name})
}

func (s *Session) SetStepConfig(id, key string, value any) error {
	return s.UpdateStep(id, StepPatch{Configuration: map[string]any{key: value}})
}

func (s *Session) SetPredicate(id, predicate string) error {
	return s.UpdateStep(id, StepPatch{Predicate: &predicate})
}

// UpdateStep applies every field of patch to one step as a single edit. When any field does not
// apply to the step nothing is changed. Repeated patches touching the same fields coalesce.
func (s *Session) UpdateStep(id string, patch StepPatch) error {
	doc := s.doc
	fields := make([]string, 0, len(patch.Configuration)+2)

	var err error

	if patch.Name != nil {
		if doc, err = steptree.SetStepName(doc, id, *patch.Name); err != nil {
			return s.contractViolation(err)
		}

		fields = append(fields, "name")
	}

	for _, key := range slices.Sorted(maps.Keys(patch.Configuration)) {
		if doc, err = steptree.SetStepConfig(doc, id, key, patch.Configuration[key]); err != nil {
			return s.contractViolation(err)
		}

		fields = append(fields, "configuration."+key)
	}

	if patch.Predicate != nil {
		if doc, err = steptree.SetPredicate(doc, id, *patch.Predicate); err != nil {
			return s.contractViolation(err)
		}

		fields = append(fields, "predicate")
	}

	if len(fields) == 0 {
		return nil
	}

	s.applyEdit(stepEditKey(id, strings.Join(fields, ",")), doc)

	return nil
}

// ConfigureTrigger replaces the trigger.
func (s *Session) ConfigureTrigger(trigger models.Trigger) {
	doc := s.doc
	doc.Trigger = trigger.Clone()

	s.applyEdit("workflow:trigger", doc)
}

// UpdateSettings applies a settings patch. An empty patch is a no-op.
func (s *Session) UpdateSettings(patch SettingsPatch) {
	doc := s.doc

	var fields []string

	if patch.DisplayName != nil {
		doc.DisplayName = *patch.DisplayName
		fields = append(fields, "display_name")
	}

	if patch.Description != nil {
		doc.Description = *patch.Description
		fields = append(fields, "description")
	}

	if patch.MaxAttempts != nil {
		doc.MaxAttempts = *patch.MaxAttempts
		fields = append(fields, "max_attempts")
	}

	if patch.Enabled != nil {
		doc.Enabled = *patch.Enabled
		fields = append(fields, "enabled")
	}

	if len(fields) == 0 {
		return
	}

	s.applyEdit("workflow:"+strings.Join(fields, ","), doc)
}

// UpdateMetadata replaces the metadata context and re-validates. History is not touched.
func (s *Session) UpdateMetadata(metadata *models.MetadataContext) {
	s.metadata = metadata
	s.revalidate()
}

// Seal ends the current field edit, e.g. on blur.
func (s *Session) Seal() {
	s.history.Seal()
}

func (s *Session) Undo() error {
	snapshot, err := s.history.Undo()
	if err != nil {
		return err
	}

	s.restore(snapshot)

	return nil
}

func (s *Session) Redo() error {
	snapshot, err := s.history.Redo()
	if err != nil {
		return err
	}

	s.restore(snapshot)

	return nil
}

// BeginSave opens the save gate and returns the token and the document to write. It fails with
// a *ValidationFailedError while the document has errors, and with ErrRequestInFlight while a
// save is pending unless retry is set.
func (s *Session) BeginSave(retry bool) (uint64, models.Workflow, error) {
	if !s.CanSave() {
		return 0, models.Workflow{}, &ValidationFailedError{Issues: s.Issues()}
	}

	token, err := s.save.begin(retry)
	if err != nil {
		return 0, models.Workflow{}, err
	}

	s.pendingSave = s.revision

	return token, s.Document(), nil
}

// CompleteSave records the outcome of a save. It reports false when token was superseded and
// the outcome was discarded.
func (s *Session) CompleteSave(token uint64, err error) bool {
	if !s.save.complete(token, err, s.clock()) {
		s.logger.Debug("Discarding superseded save response", "token", token)

		return false
	}

	if err == nil {
		s.savedRevision = s.pendingSave
	}

	return true
}

func (s *Session) SaveStatus() RequestStatus {
	return s.save.status
}

// BeginExecute opens the execute gate. It fails with ErrRequestInFlight while a test run is
// pending unless retry is set.
func (s *Session) BeginExecute(retry bool) (uint64, error) {
	return s.execute.begin(retry)
}

// CompleteExecute records the outcome of a test run. The document and history are not touched.
func (s *Session) CompleteExecute(token uint64, result *models.RunResult, err error) bool {
	if !s.execute.complete(token, err, s.clock()) {
		s.logger.Debug("Discarding superseded execute response", "token", token)

		return false
	}

	if err == nil {
		s.lastRun = result
	}

	return true
}

func (s *Session) ExecuteStatus() RequestStatus {
	return s.execute.status
}

// LastRun returns the result of the latest successful test run, if any.
func (s *Session) LastRun() *models.RunResult {
	return s.lastRun
}

// Busy reports whether a save or execute request is pending.
func (s *Session) Busy() bool {
	return s.save.inFlight() || s.execute.inFlight()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Document: s.doc, Selection: s.controller.Selection(), revision: s.revision}
}

// apply installs a structurally mutated document.
func (s *Session) apply(doc models.Workflow, focus models.Selection) {
	s.install(doc, focus, s.nextRevision())
	s.history.Commit(s.snapshot())
}

// applyEdit installs a document changed by a field edit.
func (s *Session) applyEdit(key string, doc models.Workflow) {
	s.install(doc, s.controller.Selection(), s.nextRevision())
	s.history.CommitEdit(key, s.snapshot(), s.clock())
}

func (s *Session) restore(snapshot Snapshot) {
	s.install(snapshot.Document, snapshot.Selection, snapshot.revision)
}

func (s *Session) nextRevision() uint64 {
	s.lastRevision++

	return s.lastRevision
}

func (s *Session) install(doc models.Workflow, focus models.Selection, revision uint64) {
	s.doc = doc
	s.revision = revision

	if !focus.IsTrigger() && !steptree.Contains(doc.Steps, focus.StepID) {
		focus = models.SelectTrigger()
	}

	s.controller.Select(focus)
	s.revalidate()
}

func (s *Session) revalidate() {
	s.issues = s.validator.Validate(s.doc, s.metadata)
}

// contractViolation logs a mutation the editor should never have requested and returns it.
func (s *Session) contractViolation(err error) error {
	if steptree.IsMutationError(err) {
		s.logger.Warn("Rejected step tree mutation", "error", err)
	}

	return err
}

func stepEditKey(id, field string) string {
	return "step:" + id + ":" + field
}
