package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StepKind discriminates the Step union.
type StepKind string

const (
	StepKindAction    StepKind = "action"
	StepKindCondition StepKind = "condition"
)

// Branch names used by branching steps and validation paths.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// ErrUnknownStepKind is returned when decoding a step whose kind is not recognised.
var ErrUnknownStepKind = errors.New("unknown step kind")

// Step is one node of the workflow tree. Implementations are *ActionStep and *ConditionStep.
//
// Steps are treated as immutable values once they are part of a document: edits build new
// steps (see the With* methods) instead of changing fields in place.
type Step interface {
	StepID() string
	Kind() StepKind
	TemplateID() string
	DisplayName() string
	// Clone returns a deep copy of the step and everything nested under it.
	Clone() Step
	// WithName returns a copy of the step with a new display name.
	WithName(name string) Step
	// WithID returns a copy of the step carrying a different id. Nested steps are shared.
	WithID(id string) Step
}

// Branching is implemented by steps that nest further step sequences.
type Branching interface {
	Step
	Branches() []Branch
	// WithBranch returns a shallow copy of the step with the named branch replaced.
	WithBranch(name string, steps Steps) (Step, error)
}

// Branch is a named nested sequence of a branching step.
type Branch struct {
	Name  string
	Steps Steps
}

// Steps is an ordered step sequence: the root sequence or a branch.
type Steps []Step

// Clone deep-copies the sequence.
func (s Steps) Clone() Steps {
	if s == nil {
		return nil
	}

	out := make(Steps, len(s))
	for i, step := range s {
		out[i] = step.Clone()
	}

	return out
}

// ActionStep is a leaf that performs an effect.
type ActionStep struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Template      string         `json:"template"`
	ActionType    string         `json:"action_type"`
	Configuration map[string]any `json:"configuration"`
}

func (a *ActionStep) StepID() string      { return a.ID }
func (a *ActionStep) Kind() StepKind      { return StepKindAction }
func (a *ActionStep) TemplateID() string  { return a.Template }
func (a *ActionStep) DisplayName() string { return a.Name }

func (a *ActionStep) Clone() Step {
	clone := *a
	clone.Configuration = CloneConfig(a.Configuration)

	return &clone
}

func (a *ActionStep) WithName(name string) Step {
	clone := *a
	clone.Name = name

	return &clone
}

func (a *ActionStep) WithID(id string) Step {
	clone := *a
	clone.ID = id
	clone.Configuration = CloneConfig(a.Configuration)

	return &clone
}

// WithConfig returns a copy of the action with key set to value.
func (a *ActionStep) WithConfig(key string, value any) *ActionStep {
	clone := *a
	clone.Configuration = CloneConfig(a.Configuration)

	if clone.Configuration == nil {
		clone.Configuration = make(map[string]any)
	}

	clone.Configuration[key] = value

	return &clone
}

func (a *ActionStep) MarshalJSON() ([]byte, error) {
	type alias ActionStep

	return json.Marshal(struct {
		Kind StepKind `json:"kind"`
		*alias
	}{Kind: StepKindAction, alias: (*alias)(a)})
}

// ConditionStep evaluates a predicate and continues in the true or false branch.
type ConditionStep struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Template    string `json:"template"`
	Predicate   string `json:"predicate"`
	TrueBranch  Steps  `json:"true_branch"`
	FalseBranch Steps  `json:"false_branch"`
}

func (c *ConditionStep) StepID() string      { return c.ID }
func (c *ConditionStep) Kind() StepKind      { return StepKindCondition }
func (c *ConditionStep) TemplateID() string  { return c.Template }
func (c *ConditionStep) DisplayName() string { return c.Name }

func (c *ConditionStep) Clone() Step {
	clone := *c
	clone.TrueBranch = c.TrueBranch.Clone()
	clone.FalseBranch = c.FalseBranch.Clone()

	return &clone
}

func (c *ConditionStep) WithName(name string) Step {
	clone := *c
	clone.Name = name

	return &clone
}

func (c *ConditionStep) WithID(id string) Step {
	clone := *c
	clone.ID = id

	return &clone
}

// WithPredicate returns a copy of the condition with a new predicate.
func (c *ConditionStep) WithPredicate(predicate string) *ConditionStep {
	clone := *c
	clone.Predicate = predicate

	return &clone
}

// Branches returns the true branch followed by the false branch.
func (c *ConditionStep) Branches() []Branch {
	return []Branch{
		{Name: BranchTrue, Steps: c.TrueBranch},
		{Name: BranchFalse, Steps: c.FalseBranch},
	}
}

func (c *ConditionStep) WithBranch(name string, steps Steps) (Step, error) {
	clone := *c

	switch name {
	case BranchTrue:
		clone.TrueBranch = steps
	case BranchFalse:
		clone.FalseBranch = steps
	default:
		return nil, fmt.Errorf("condition step has no branch %q", name)
	}

	return &clone, nil
}

func (c *ConditionStep) MarshalJSON() ([]byte, error) {
	type alias ConditionStep

	encoded := *c

	// Empty branches are encoded as [] rather than null.
	if encoded.TrueBranch == nil {
		encoded.TrueBranch = Steps{}
	}

	if encoded.FalseBranch == nil {
		encoded.FalseBranch = Steps{}
	}

	return json.Marshal(struct {
		Kind StepKind `json:"kind"`
		*alias
	}{Kind: StepKindCondition, alias: (*alias)(&encoded)})
}

// UnmarshalJSON decodes each element by its kind.
func (s *Steps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	steps := make(Steps, 0, len(raw))

	for i, item := range raw {
		step, err := UnmarshalStep(item)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		steps = append(steps, step)
	}

	*s = steps

	return nil
}

// UnmarshalStep decodes a single JSON encoded step.
func UnmarshalStep(data []byte) (Step, error) {
	var envelope struct {
		Kind StepKind `json:"kind"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Kind {
	case StepKindAction:
		var action ActionStep
		if err := json.Unmarshal(data, &action); err != nil {
			return nil, err
		}

		return &action, nil
	case StepKindCondition:
		var condition ConditionStep
		if err := json.Unmarshal(data, &condition); err != nil {
			return nil, err
		}

		if condition.TrueBranch == nil {
			condition.TrueBranch = Steps{}
		}

		if condition.FalseBranch == nil {
			condition.FalseBranch = Steps{}
		}

		return &condition, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepKind, envelope.Kind)
	}
}
