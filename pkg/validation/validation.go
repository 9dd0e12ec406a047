// Package validation checks a workflow document against the template catalog and the metadata
// context. Validation is pure: identical inputs always produce the identical, identically ordered
// issue list.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/steptree"
	"github.com/expr-lang/expr"
	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"
)

// Issue codes.
const (
	CodeTriggerUnconfigured   = "trigger_unconfigured"
	CodeTriggerUnknownType    = "trigger_unknown_type"
	CodeTriggerInvalid        = "trigger_invalid"
	CodeMaxAttemptsInvalid    = "max_attempts_invalid"
	CodeLogicalNameInvalid    = "logical_name_invalid"
	CodeTemplateUnknown       = "template_unknown"
	CodeConfigRequired        = "config_required"
	CodeConfigInvalid         = "config_invalid"
	CodePredicateEmpty        = "predicate_empty"
	CodePredicateInvalid      = "predicate_invalid"
	CodeEntityUnknown         = "entity_unknown"
	CodeFieldUnknown          = "field_unknown"
	CodeFieldTypeIncompatible = "field_type_incompatible"
	CodeStepIDInvalid         = "step_id_invalid"
	CodeStepIDDuplicate       = "step_id_duplicate"
)

var logicalNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

var recordEvents = []string{"created", "updated", "deleted"}

// Validator validates workflow documents. It is safe for concurrent use.
type Validator struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate returns every issue found in doc, in a stable order: trigger, workflow settings, then
// steps in pre-order (a condition's true branch fully before its false branch).
//
// A nil metadata context disables referential checks.
func (v *Validator) Validate(doc models.Workflow, metadata *models.MetadataContext) []models.ValidationIssue {
	issues := make([]models.ValidationIssue, 0)

	issues = append(issues, v.validateTrigger(doc.Trigger, metadata)...)
	issues = append(issues, validateSettings(doc)...)

	seen := make(map[string]bool)

	steptree.Walk(doc.Steps, func(step models.Step, path models.Path) bool {
		if issue, ok := checkStepID(step, path, seen); !ok {
			issues = append(issues, issue)
		}

		issues = append(issues, v.validateStep(step, path, metadata)...)

		return true
	})

	return issues
}

// ErrorCount returns the number of error-severity issues.
func ErrorCount(issues []models.ValidationIssue) int {
	return models.CountErrors(issues)
}

// CanSave reports whether issues allow the document to be saved.
func CanSave(issues []models.ValidationIssue) bool {
	return ErrorCount(issues) == 0
}

func (v *Validator) validateTrigger(trigger models.Trigger, metadata *models.MetadataContext) []models.ValidationIssue {
	path := models.TriggerPath()

	if !trigger.IsConfigured() {
		return []models.ValidationIssue{newError(CodeTriggerUnconfigured, path, "", "Trigger is not configured")}
	}

	var issues []models.ValidationIssue

	switch trigger.Type {
	case models.TriggerManual, models.TriggerWebhook:
	case models.TriggerSchedule:
		expression := trigger.ConfigString(models.TriggerConfigCron)
		if isBlank(trigger.Configuration[models.TriggerConfigCron]) {
			issues = append(issues, newError(CodeConfigRequired, path, "", "Schedule trigger requires a cron expression"))
		} else if _, err := cron.ParseStandard(expression); err != nil {
			issues = append(issues, newError(CodeTriggerInvalid, path, "",
				fmt.Sprintf("Invalid cron expression %q: %v", expression, err)))
		}
	case models.TriggerRecordEvent:
		entity := trigger.ConfigString(models.TriggerConfigEntity)
		if isBlank(trigger.Configuration[models.TriggerConfigEntity]) {
			issues = append(issues, newError(CodeConfigRequired, path, "", "Record event trigger requires an entity"))
		} else if metadata != nil {
			if _, ok := metadata.Entity(entity); !ok {
				issues = append(issues, newError(CodeEntityUnknown, path, "",
					fmt.Sprintf("Entity %q does not exist", entity)))
			}
		}

		event := trigger.ConfigString(models.TriggerConfigEvent)
		if event != "" && !slices.Contains(recordEvents, event) {
			issues = append(issues, newError(CodeTriggerInvalid, path, "",
				fmt.Sprintf("Unknown record event %q, expected one of %s", event, strings.Join(recordEvents, ", "))))
		}
	default:
		issues = append(issues, newError(CodeTriggerUnknownType, path, "",
			fmt.Sprintf("Unknown trigger type %q", trigger.Type)))
	}

	return issues
}

func validateSettings(doc models.Workflow) []models.ValidationIssue {
	var issues []models.ValidationIssue

	path := models.WorkflowPath()

	if doc.MaxAttempts < 1 {
		issues = append(issues, newError(CodeMaxAttemptsInvalid, path, "",
			fmt.Sprintf("Max attempts must be a positive integer, got %d", doc.MaxAttempts)))
	}

	if !logicalNamePattern.MatchString(doc.LogicalName) {
		issues = append(issues, newError(CodeLogicalNameInvalid, path, "",
			fmt.Sprintf("Logical name %q must contain only lowercase letters, digits and underscores", doc.LogicalName)))
	}

	return issues
}

// checkStepID reports a blank, reserved or repeated step id. Only the later occurrence of a
// repeated id is reported.
func checkStepID(step models.Step, path models.Path, seen map[string]bool) (models.ValidationIssue, bool) {
	id := step.StepID()

	switch {
	case strings.TrimSpace(id) == "" || id == models.TriggerSelectionValue:
		return newError(CodeStepIDInvalid, path, id,
			fmt.Sprintf("Step %q has an invalid id %q", step.DisplayName(), id)), false
	case seen[id]:
		return newError(CodeStepIDDuplicate, path, id,
			fmt.Sprintf("Step id %q is used by more than one step", id)), false
	}

	seen[id] = true

	return models.ValidationIssue{}, true
}

func (v *Validator) validateStep(step models.Step, path models.Path, metadata *models.MetadataContext) []models.ValidationIssue {
	var issues []models.ValidationIssue

	template, known := v.catalog.Get(step.TemplateID())
	if !known {
		issues = append(issues, newWarning(CodeTemplateUnknown, path, step.StepID(),
			fmt.Sprintf("Step %q uses unknown template %q; its configuration cannot be checked", step.DisplayName(), step.TemplateID())))
	}

	switch s := step.(type) {
	case *models.ActionStep:
		if known {
			issues = append(issues, validateConfiguration(s, template, path)...)
		}

		issues = append(issues, validateReferences(s, template, path, metadata)...)
	case *models.ConditionStep:
		issues = append(issues, validatePredicate(s, path)...)
	}

	return issues
}

// validateConfiguration reports missing required keys as errors and schema violations of the
// remaining keys as warnings.
func validateConfiguration(step *models.ActionStep, template *catalog.Template, path models.Path) []models.ValidationIssue {
	var issues []models.ValidationIssue

	missing := make(map[string]bool)

	for _, key := range template.Required() {
		if !isBlank(step.Configuration[key]) {
			continue
		}

		missing[key] = true

		issues = append(issues, newError(CodeConfigRequired, path, step.ID,
			fmt.Sprintf("Step %q is missing required configuration %q", step.Name, key)))
	}

	if len(template.Schema) == 0 {
		return issues
	}

	config := step.Configuration
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(template.Schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return append(issues, newWarning(CodeConfigInvalid, path, step.ID,
			fmt.Sprintf("Step %q configuration could not be checked: %v", step.Name, err)))
	}

	var violations []string

	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			continue
		}

		key, _, _ := strings.Cut(desc.Field(), ".")
		if missing[key] {
			continue
		}

		violations = append(violations, desc.String())
	}

	slices.Sort(violations)

	for _, violation := range violations {
		issues = append(issues, newWarning(CodeConfigInvalid, path, step.ID,
			fmt.Sprintf("Step %q configuration: %s", step.Name, violation)))
	}

	return issues
}

func validatePredicate(step *models.ConditionStep, path models.Path) []models.ValidationIssue {
	if strings.TrimSpace(step.Predicate) == "" {
		return []models.ValidationIssue{newError(CodePredicateEmpty, path, step.ID,
			fmt.Sprintf("Condition %q has no predicate", step.Name))}
	}

	if _, err := expr.Compile(step.Predicate, expr.AsBool()); err != nil {
		return []models.ValidationIssue{newError(CodePredicateInvalid, path, step.ID,
			fmt.Sprintf("Condition %q predicate does not compile: %v", step.Name, firstLine(err.Error())))}
	}

	return nil
}

// validateReferences checks the entity, field and fields configuration keys against metadata.
func validateReferences(step *models.ActionStep, template *catalog.Template, path models.Path, metadata *models.MetadataContext) []models.ValidationIssue {
	if metadata == nil {
		return nil
	}

	entityName, ok := step.Configuration[catalog.ConfigEntity].(string)
	if !ok || isBlank(entityName) {
		return nil
	}

	entity, ok := metadata.Entity(entityName)
	if !ok {
		return []models.ValidationIssue{newError(CodeEntityUnknown, path, step.ID,
			fmt.Sprintf("Step %q references unknown entity %q", step.Name, entityName))}
	}

	var issues []models.ValidationIssue

	if fieldName, ok := step.Configuration[catalog.ConfigField].(string); ok && !isBlank(fieldName) {
		field, found := entity.Field(fieldName)

		switch {
		case !found:
			issues = append(issues, unknownField(step, path, entityName, fieldName))
		case template != nil && !template.AcceptsFieldType(field.Type):
			issues = append(issues, newWarning(CodeFieldTypeIncompatible, path, step.ID,
				fmt.Sprintf("Step %q cannot use %s field %q of entity %q", step.Name, field.Type, fieldName, entityName)))
		}
	}

	values, _ := step.Configuration[catalog.ConfigFields].(map[string]any)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		field, found := entity.Field(name)
		if !found {
			issues = append(issues, unknownField(step, path, entityName, name))

			continue
		}

		if !compatible(field.Type, values[name]) {
			issues = append(issues, newWarning(CodeFieldTypeIncompatible, path, step.ID,
				fmt.Sprintf("Step %q assigns a %T value to %s field %q of entity %q", step.Name, values[name], field.Type, name, entityName)))
		}
	}

	return issues
}

func unknownField(step *models.ActionStep, path models.Path, entity, field string) models.ValidationIssue {
	return newError(CodeFieldUnknown, path, step.ID,
		fmt.Sprintf("Step %q references unknown field %q of entity %q", step.Name, field, entity))
}

// compatible reports whether value can be stored in a field of type ft. Blank values and
// template expressions are accepted for every type.
func compatible(ft models.FieldType, value any) bool {
	if isBlank(value) {
		return true
	}

	if s, ok := value.(string); ok && strings.Contains(s, "{{") {
		return true
	}

	switch ft {
	case models.FieldTypeString, models.FieldTypeText, models.FieldTypeDatetime, models.FieldTypeLookup:
		_, ok := value.(string)

		return ok
	case models.FieldTypeBoolean:
		_, ok := value.(bool)

		return ok
	case models.FieldTypeInteger:
		switch n := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		default:
			return false
		}
	case models.FieldTypeDecimal:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		default:
			return false
		}
	default:
		return true
	}
}

// isBlank treats nil, whitespace-only strings and empty collections as missing.
func isBlank(value any) bool {
	if value == nil {
		return true
	}

	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	default:
		return false
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}

func newError(code string, path models.Path, stepID, message string) models.ValidationIssue {
	return models.ValidationIssue{Severity: models.SeverityError, Code: code, Path: path, Message: message, StepID: stepID}
}

func newWarning(code string, path models.Path, stepID, message string) models.ValidationIssue {
	return models.ValidationIssue{Severity: models.SeverityWarning, Code: code, Path: path, Message: message, StepID: stepID}
}
