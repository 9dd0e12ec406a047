package models

import "slices"

// Trigger configuration keys understood by the validation engine.
const (
	TriggerConfigCron   = "cron"
	TriggerConfigEntity = "entity"
	TriggerConfigEvent  = "event"
	TriggerConfigPath   = "path"
)

// IsKnownTriggerType reports whether t is one of TriggerTypes.
func IsKnownTriggerType(t TriggerType) bool {
	return slices.Contains(TriggerTypes, t)
}

// ConfigString returns the configuration value for key when it is a string.
func (t Trigger) ConfigString(key string) string {
	value, _ := t.Configuration[key].(string)

	return value
}
