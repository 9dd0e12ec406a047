package models

// FieldType is the storage type of an entity field.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeText     FieldType = "text"
	FieldTypeInteger  FieldType = "integer"
	FieldTypeDecimal  FieldType = "decimal"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeLookup   FieldType = "lookup"
)

// Field describes one field of an entity.
type Field struct {
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`
}

// Entity describes a record type and its fields.
type Entity struct {
	Name   string  `json:"name"   yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// MetadataContext is the read-only entity/field catalog used for referential validation.
type MetadataContext struct {
	Entities []Entity `json:"entities" yaml:"entities"`
}

// Entity returns the entity with the given name.
func (m *MetadataContext) Entity(name string) (*Entity, bool) {
	if m == nil {
		return nil, false
	}

	for i := range m.Entities {
		if m.Entities[i].Name == name {
			return &m.Entities[i], true
		}
	}

	return nil, false
}

// Field returns the named field of the entity.
func (e *Entity) Field(name string) (Field, bool) {
	for _, field := range e.Fields {
		if field.Name == name {
			return field, true
		}
	}

	return Field{}, false
}
