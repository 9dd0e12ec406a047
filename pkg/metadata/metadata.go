// Package metadata loads the entity/field catalog used for referential validation.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/operion-studio/pkg/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateEntity = errors.New("duplicate entity")
	ErrDuplicateField  = errors.New("duplicate field")
	ErrUnknownType     = errors.New("unknown field type")
	ErrMissingName     = errors.New("missing name")
)

var fieldTypes = []models.FieldType{
	models.FieldTypeString,
	models.FieldTypeText,
	models.FieldTypeInteger,
	models.FieldTypeDecimal,
	models.FieldTypeBoolean,
	models.FieldTypeDatetime,
	models.FieldTypeLookup,
}

// Load reads a catalog from a .json, .yaml or .yml file. An empty path means no catalog: it
// returns nil, which disables referential checks.
func Load(path string) (*models.MetadataContext, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata catalog: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	return Parse(data, format)
}

// Parse decodes a catalog in the given format ("json" or "yaml") and checks it.
func Parse(data []byte, format string) (*models.MetadataContext, error) {
	var catalog models.MetadataContext

	switch format {
	case "json":
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("failed to parse metadata catalog: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("failed to parse metadata catalog: %w", err)
		}
	}

	if err := Check(&catalog); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Check rejects unnamed or duplicated entities and fields, and unknown field types.
func Check(catalog *models.MetadataContext) error {
	entities := make(map[string]bool, len(catalog.Entities))

	for i, entity := range catalog.Entities {
		if entity.Name == "" {
			return fmt.Errorf("entity %d: %w", i, ErrMissingName)
		}

		if entities[entity.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateEntity, entity.Name)
		}

		entities[entity.Name] = true
		fields := make(map[string]bool, len(entity.Fields))

		for j, field := range entity.Fields {
			if field.Name == "" {
				return fmt.Errorf("entity %s field %d: %w", entity.Name, j, ErrMissingName)
			}

			if fields[field.Name] {
				return fmt.Errorf("%w: %s.%s", ErrDuplicateField, entity.Name, field.Name)
			}

			fields[field.Name] = true

			if !slices.Contains(fieldTypes, field.Type) {
				return fmt.Errorf("%w %q for %s.%s", ErrUnknownType, field.Type, entity.Name, field.Name)
			}
		}
	}

	return nil
}
