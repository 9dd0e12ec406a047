package catalog

import "github.com/dukex/operion-studio/pkg/models"

// Built-in template categories.
const (
	CategoryRecords       = "records"
	CategoryCommunication = "communication"
	CategoryIntegration   = "integration"
	CategoryData          = "data"
	CategoryLogic         = "logic"
)

func builtinTemplates() []*Template {
	return []*Template{
		createRecordTemplate(),
		updateRecordTemplate(),
		deleteRecordTemplate(),
		setFieldTemplate(),
		incrementFieldTemplate(),
		sendEmailTemplate(),
		sendNotificationTemplate(),
		httpRequestTemplate(),
		transformTemplate(),
		logTemplate(),
		conditionTemplate(),
		delayTemplate(),
	}
}

func entityProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Logical name of the target entity",
	}
}

func recordIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Record id. Supports templating, e.g. {{.trigger.record_id}}",
	}
}

func createRecordTemplate() *Template {
	return &Template{
		ID:          "create_record",
		Name:        "Create Record",
		Description: "Creates a new record of an entity with the given field values",
		Category:    CategoryRecords,
		Kind:        models.StepKindAction,
		ActionType:  "record.create",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				ConfigEntity: entityProperty(),
				ConfigFields: map[string]any{
					"type":        "object",
					"description": "Field name to value mapping",
				},
			},
			"required": []string{ConfigEntity, ConfigFields},
		},
	}
}

func updateRecordTemplate() *Template {
	return &Template{
		ID:          "update_record",
		Name:        "Update Record",
		Description: "Updates field values of an existing record",
		Category:    CategoryRecords,
		Kind:        models.StepKindAction,
		ActionType:  "record.update",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				ConfigEntity: entityProperty(),
				"record_id":  recordIDProperty(),
				ConfigFields: map[string]any{
					"type":        "object",
					"description": "Field name to value mapping",
				},
			},
			"required": []string{ConfigEntity, "record_id", ConfigFields},
		},
	}
}

func deleteRecordTemplate() *Template {
	return &Template{
		ID:          "delete_record",
		Name:        "Delete Record",
		Description: "Deletes a record of an entity",
		Category:    CategoryRecords,
		Kind:        models.StepKindAction,
		ActionType:  "record.delete",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				ConfigEntity: entityProperty(),
				"record_id":  recordIDProperty(),
			},
			"required": []string{ConfigEntity, "record_id"},
		},
	}
}

func setFieldTemplate() *Template {
	return &Template{
		ID:          "set_field",
		Name:        "Set Field",
		Description: "Sets a single field of a record to a value",
		Category:    CategoryRecords,
		Kind:        models.StepKindAction,
		ActionType:  "record.set_field",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				ConfigEntity: entityProperty(),
				"record_id":  recordIDProperty(),
				ConfigField: map[string]any{
					"type":        "string",
					"description": "Field to set",
				},
				"value": map[string]any{
					"description": "Value to assign",
				},
			},
			"required": []string{ConfigEntity, "record_id", ConfigField},
		},
	}
}

func incrementFieldTemplate() *Template {
	return &Template{
		ID:          "increment_field",
		Name:        "Increment Field",
		Description: "Adds an amount to a numeric field of a record",
		Category:    CategoryRecords,
		Kind:        models.StepKindAction,
		ActionType:  "record.increment",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				ConfigEntity: entityProperty(),
				"record_id":  recordIDProperty(),
				ConfigField: map[string]any{
					"type":        "string",
					"description": "Numeric field to increment",
				},
				"amount": map[string]any{
					"type":        "number",
					"description": "Amount to add",
					"default":     1,
				},
			},
			"required": []string{ConfigEntity, "record_id", ConfigField},
		},
		FieldTypes: []models.FieldType{models.FieldTypeInteger, models.FieldTypeDecimal},
	}
}

func sendEmailTemplate() *Template {
	return &Template{
		ID:          "send_email",
		Name:        "Send Email",
		Description: "Sends an email message to one recipient",
		Category:    CategoryCommunication,
		Kind:        models.StepKindAction,
		ActionType:  "email.send",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to": map[string]any{
					"type":        "string",
					"description": "Recipient address. Supports templating",
				},
				"subject": map[string]any{
					"type":        "string",
					"description": "Message subject",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Message body",
				},
			},
			"required": []string{"to", "subject", "body"},
		},
	}
}

func sendNotificationTemplate() *Template {
	return &Template{
		ID:          "send_notification",
		Name:        "Send Notification",
		Description: "Posts an in-app notification to a user or team",
		Category:    CategoryCommunication,
		Kind:        models.StepKindAction,
		ActionType:  "notification.send",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recipient": map[string]any{
					"type":        "string",
					"description": "User or team id",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "Notification text",
				},
				"priority": map[string]any{
					"type":    "string",
					"enum":    []string{"low", "normal", "high"},
					"default": "normal",
				},
			},
			"required": []string{"recipient", "message"},
		},
	}
}

func httpRequestTemplate() *Template {
	return &Template{
		ID:          "http_request",
		Name:        "HTTP Request",
		Description: "Performs an HTTP request against an external service",
		Category:    CategoryIntegration,
		Kind:        models.StepKindAction,
		ActionType:  "http.request",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "HTTP URL to request. Supports templating",
				},
				"method": map[string]any{
					"type":        "string",
					"description": "HTTP method",
					"default":     "GET",
					"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
				},
				"headers": map[string]any{
					"type":        "object",
					"description": "HTTP headers as key-value pairs",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Request body",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Request timeout in seconds",
					"default":     30,
					"minimum":     1,
					"maximum":     300,
				},
			},
			"required": []string{"url", "method"},
		},
	}
}

func transformTemplate() *Template {
	return &Template{
		ID:          "transform",
		Name:        "Transform",
		Description: "Transforms data using an expression and stores the result",
		Category:    CategoryData,
		Kind:        models.StepKindAction,
		ActionType:  "data.transform",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Expression producing the output value",
				},
				"output": map[string]any{
					"type":        "string",
					"description": "Variable receiving the result",
				},
			},
			"required": []string{"expression", "output"},
		},
	}
}

func logTemplate() *Template {
	return &Template{
		ID:          "log",
		Name:        "Log",
		Description: "Writes a message to the run log",
		Category:    CategoryData,
		Kind:        models.StepKindAction,
		ActionType:  "log.write",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Log message. Supports templating",
				},
				"level": map[string]any{
					"type":    "string",
					"enum":    []string{"debug", "info", "warn", "error"},
					"default": "info",
				},
			},
			"required": []string{"message"},
		},
	}
}

func conditionTemplate() *Template {
	return &Template{
		ID:          "condition",
		Name:        "Condition",
		Description: "Evaluates a predicate and continues in the true or false branch",
		Category:    CategoryLogic,
		Kind:        models.StepKindCondition,
	}
}

func delayTemplate() *Template {
	return &Template{
		ID:          "delay",
		Name:        "Delay",
		Description: "Pauses the run for a number of seconds before continuing",
		Category:    CategoryLogic,
		Kind:        models.StepKindAction,
		ActionType:  "flow.delay",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"seconds": map[string]any{
					"type":    "integer",
					"minimum": 1,
					"default": 60,
				},
			},
			"required": []string{"seconds"},
		},
	}
}
