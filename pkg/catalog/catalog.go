// Package catalog provides the static registry of step templates offered for insertion into the tree.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/operion-studio/pkg/models"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// ErrTemplateAlreadyRegistered is returned when two templates share an id.
var ErrTemplateAlreadyRegistered = errors.New("template already registered")

// Filter narrows the templates returned by List.
type Filter struct {
	Query    string
	Category string
}

// Catalog is an ordered, immutable-after-setup set of templates. It is safe to share between
// sessions once registration is done.
type Catalog struct {
	templates []*Template
	byID      map[string]*Template
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		templates: make([]*Template, 0),
		byID:      make(map[string]*Template),
	}
}

// Default returns a catalog holding every built-in template.
func Default() *Catalog {
	c := New()

	for _, template := range builtinTemplates() {
		if err := c.Register(template); err != nil {
			panic(err)
		}
	}

	return c
}

// Register adds a template. Templates keep their registration order.
func (c *Catalog) Register(template *Template) error {
	if template.ID == "" {
		return errors.New("template id is required")
	}

	if _, exists := c.byID[template.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTemplateAlreadyRegistered, template.ID)
	}

	c.templates = append(c.templates, template)
	c.byID[template.ID] = template

	return nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (*Template, bool) {
	template, ok := c.byID[id]

	return template, ok
}

// List returns the templates matching the filter in registration order.
func (c *Catalog) List(filter Filter) []*Template {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	category := strings.TrimSpace(filter.Category)

	result := make([]*Template, 0, len(c.templates))

	for _, template := range c.templates {
		if category != "" && category != CategoryAll && template.Category != category {
			continue
		}

		if query != "" &&
			!strings.Contains(strings.ToLower(template.Name), query) &&
			!strings.Contains(strings.ToLower(template.Description), query) {
			continue
		}

		result = append(result, template)
	}

	return result
}

// Categories returns the distinct template categories in first-seen order.
func (c *Catalog) Categories() []string {
	categories := make([]string, 0)

	for _, template := range c.templates {
		if !slices.Contains(categories, template.Category) {
			categories = append(categories, template.Category)
		}
	}

	return categories
}

// Len returns the number of registered templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// HealthCheck reports whether the catalog holds any template.
func (c *Catalog) HealthCheck() (string, bool) {
	if len(c.templates) == 0 {
		return "Template catalog is empty", false
	}

	return fmt.Sprintf("Template catalog has %d templates", len(c.templates)), true
}

// Minter mints fresh step ids. *idgen.Generator implements it.
type Minter interface {
	Next() string
}

// Configuration keys that reference the metadata catalog.
const (
	ConfigEntity = "entity"
	ConfigField  = "field"
	ConfigFields = "fields"
)

// Template is a reusable step skeleton.
type Template struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Kind        models.StepKind `json:"kind"`
	ActionType  string          `json:"action_type,omitempty"`
	// Schema is the JSON schema of the step configuration. Its "required" list defines the
	// configuration keys a step built from this template must fill in.
	Schema map[string]any `json:"schema,omitempty"`
	// FieldTypes restricts the metadata field types accepted by the "field" key. Empty accepts any.
	FieldTypes []models.FieldType `json:"field_types,omitempty"`
}

// Required returns the required configuration keys in schema order.
func (t *Template) Required() []string {
	switch required := t.Schema["required"].(type) {
	case []string:
		return required
	case []any:
		keys := make([]string, 0, len(required))

		for _, key := range required {
			if s, ok := key.(string); ok {
				keys = append(keys, s)
			}
		}

		return keys
	default:
		return nil
	}
}

// AcceptsFieldType reports whether the template's "field" key may reference a field of type ft.
func (t *Template) AcceptsFieldType(ft models.FieldType) bool {
	return len(t.FieldTypes) == 0 || slices.Contains(t.FieldTypes, ft)
}

// Instantiate builds a new step with a fresh id and placeholder configuration.
func (t *Template) Instantiate(minter Minter) models.Step {
	id := minter.Next()

	if t.Kind == models.StepKindCondition {
		return &models.ConditionStep{
			ID:          id,
			Name:        t.Name,
			Template:    t.ID,
			TrueBranch:  models.Steps{},
			FalseBranch: models.Steps{},
		}
	}

	return &models.ActionStep{
		ID:            id,
		Name:          t.Name,
		Template:      t.ID,
		ActionType:    t.ActionType,
		Configuration: t.Placeholder(),
	}
}

// Placeholder returns the initial configuration: schema defaults, or an empty value of the
// declared type for required keys.
func (t *Template) Placeholder() map[string]any {
	config := make(map[string]any)

	properties, _ := t.Schema["properties"].(map[string]any)
	required := t.Required()

	for key, raw := range properties {
		property, _ := raw.(map[string]any)

		if def, ok := property["default"]; ok {
			config[key] = def

			continue
		}

		if !slices.Contains(required, key) {
			continue
		}

		switch property["type"] {
		case "object":
			config[key] = map[string]any{}
		case "string":
			config[key] = ""
		}
	}

	return config
}
