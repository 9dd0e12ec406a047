// Package steptree implements the structural edits of a workflow's step tree.
//
// Every function is pure: the input document is never modified and the returned document
// shares every untouched step with it. Only the sequences and branching steps on the path
// from the root to the edited location are rebuilt, so documents kept in the undo history
// never alias a later edit.
package steptree

import (
	"fmt"
	"slices"

	"github.com/dukex/operion-studio/pkg/models"
)

// Minter mints fresh step ids. *idgen.Generator implements it.
type Minter interface {
	Next() string
}

// seqEdit rebuilds the sequence that directly holds the located step at index.
type seqEdit func(seq models.Steps, index int) (models.Steps, error)

// rewrite locates id in seq, applies edit to the sequence holding it and rebuilds the path
// back up to seq. It reports whether id was found.
func rewrite(seq models.Steps, id string, edit seqEdit) (models.Steps, bool, error) {
	for i, step := range seq {
		if step.StepID() == id {
			out, err := edit(seq, i)

			return out, true, err
		}

		branching, ok := step.(models.Branching)
		if !ok {
			continue
		}

		for _, branch := range branching.Branches() {
			updated, found, err := rewrite(branch.Steps, id, edit)
			if !found {
				continue
			}

			if err != nil {
				return nil, true, err
			}

			replaced, err := branching.WithBranch(branch.Name, updated)
			if err != nil {
				return nil, true, err
			}

			return replaceAt(seq, i, replaced), true, nil
		}
	}

	return seq, false, nil
}

// rewriteStep replaces the step with the given id by fn's result.
func rewriteStep(seq models.Steps, id string, fn func(models.Step) (models.Step, error)) (models.Steps, error) {
	out, found, err := rewrite(seq, id, func(seq models.Steps, i int) (models.Steps, error) {
		replacement, err := fn(seq[i])
		if err != nil {
			return nil, err
		}

		return replaceAt(seq, i, replacement), nil
	})
	if !found {
		return nil, ErrStepNotFound
	}

	return out, err
}

func insertAt(seq models.Steps, index int, step models.Step) models.Steps {
	out := make(models.Steps, 0, len(seq)+1)
	out = append(out, seq[:index]...)
	out = append(out, step)

	return append(out, seq[index:]...)
}

func removeAt(seq models.Steps, index int) models.Steps {
	out := make(models.Steps, 0, len(seq)-1)
	out = append(out, seq[:index]...)

	return append(out, seq[index+1:]...)
}

func replaceAt(seq models.Steps, index int, step models.Step) models.Steps {
	out := slices.Clone(seq)
	out[index] = step

	return out
}

func withSteps(doc models.Workflow, steps models.Steps) models.Workflow {
	doc.Steps = steps

	return doc
}

// Insert places step according to mode relative to the selection.
//
// before_selected/after_selected splice the step next to the selected step inside whichever
// sequence holds it; into_true_branch/into_false_branch append to a branch of the selected
// condition; root_start/root_end ignore the selection. With the trigger selected,
// after_selected inserts at the start of the root sequence and every other anchored mode fails.
func Insert(doc models.Workflow, step models.Step, mode models.InsertMode, selection models.Selection) (models.Workflow, error) {
	const op = "insert"

	existing := IDs(doc.Steps)
	for _, id := range IDs(models.Steps{step}) {
		if slices.Contains(existing, id) {
			return doc, newMutationError(op, id, fmt.Errorf("%w: step id %s already in use", ErrInvalidInsertion, id))
		}
	}

	steps, err := place(doc.Steps, step, mode, selection)
	if err != nil {
		return doc, newMutationError(op, selection.StepID, err)
	}

	return withSteps(doc, steps), nil
}

func place(root models.Steps, step models.Step, mode models.InsertMode, selection models.Selection) (models.Steps, error) {
	switch mode {
	case models.InsertRootStart:
		return insertAt(root, 0, step), nil
	case models.InsertRootEnd:
		return insertAt(root, len(root), step), nil
	case models.InsertBeforeSelected, models.InsertAfterSelected:
		offset := 0
		if mode == models.InsertAfterSelected {
			offset = 1
		}

		if selection.IsTrigger() {
			if mode == models.InsertAfterSelected {
				return insertAt(root, 0, step), nil
			}

			return nil, fmt.Errorf("%w: nothing can be placed before the trigger", ErrInvalidInsertion)
		}

		out, found, err := rewrite(root, selection.StepID, func(seq models.Steps, i int) (models.Steps, error) {
			return insertAt(seq, i+offset, step), nil
		})
		if !found {
			return nil, ErrStepNotFound
		}

		return out, err
	case models.InsertIntoTrueBranch, models.InsertIntoFalseBranch:
		name, _ := mode.Branch()

		if selection.IsTrigger() {
			return nil, fmt.Errorf("%w: the trigger has no %s branch", ErrInvalidInsertion, name)
		}

		return rewriteStep(root, selection.StepID, func(target models.Step) (models.Step, error) {
			return appendToBranch(target, name, step)
		})
	default:
		return nil, fmt.Errorf("%w: unknown insert mode %q", ErrInvalidInsertion, mode)
	}
}

func appendToBranch(target models.Step, name string, step models.Step) (models.Step, error) {
	branching, ok := target.(models.Branching)
	if !ok {
		return nil, fmt.Errorf("%w: %s step %s has no %s branch", ErrInvalidInsertion, target.Kind(), target.StepID(), name)
	}

	for _, branch := range branching.Branches() {
		if branch.Name == name {
			return branching.WithBranch(name, insertAt(branch.Steps, len(branch.Steps), step))
		}
	}

	return nil, fmt.Errorf("%w: step %s has no %s branch", ErrInvalidInsertion, target.StepID(), name)
}

// Move detaches the subtree rooted at id and re-inserts it, ids unchanged, with the same
// anchor rules as Insert. The target must not be the moved step or lie inside its subtree.
func Move(doc models.Workflow, id string, target models.Selection, mode models.InsertMode) (models.Workflow, error) {
	const op = "move"

	moved, _, ok := Find(doc.Steps, id)
	if !ok {
		return doc, newMutationError(op, id, ErrStepNotFound)
	}

	if mode.Anchored() && !target.IsTrigger() && IsWithin(doc.Steps, id, target.StepID) {
		return doc, newMutationError(op, id, fmt.Errorf("%w: cannot move step %s relative to itself or its descendant %s", ErrInvalidInsertion, id, target.StepID))
	}

	detached, err := remove(doc.Steps, id)
	if err != nil {
		return doc, newMutationError(op, id, err)
	}

	steps, err := place(detached, moved, mode, target)
	if err != nil {
		return doc, newMutationError(op, id, err)
	}

	return withSteps(doc, steps), nil
}

// Delete removes the subtree rooted at id.
func Delete(doc models.Workflow, id string) (models.Workflow, error) {
	steps, err := remove(doc.Steps, id)
	if err != nil {
		return doc, newMutationError("delete", id, err)
	}

	return withSteps(doc, steps), nil
}

func remove(root models.Steps, id string) (models.Steps, error) {
	out, found, err := rewrite(root, id, func(seq models.Steps, i int) (models.Steps, error) {
		return removeAt(seq, i), nil
	})
	if !found {
		return nil, ErrStepNotFound
	}

	return out, err
}

// Duplicate deep-copies the subtree rooted at id, minting a fresh id for every node of the
// copy, and inserts the copy right after the original. It returns the id of the copy.
func Duplicate(doc models.Workflow, id string, minter Minter) (models.Workflow, string, error) {
	const op = "duplicate"

	var copyID string

	steps, found, err := rewrite(doc.Steps, id, func(seq models.Steps, i int) (models.Steps, error) {
		duplicate := withFreshIDs(seq[i], minter)
		copyID = duplicate.StepID()

		return insertAt(seq, i+1, duplicate), nil
	})
	if !found {
		return doc, "", newMutationError(op, id, ErrStepNotFound)
	}

	if err != nil {
		return doc, "", newMutationError(op, id, err)
	}

	return withSteps(doc, steps), copyID, nil
}

// withFreshIDs copies step and its descendants in pre-order, minting a new id for each.
func withFreshIDs(step models.Step, minter Minter) models.Step {
	out := step.WithID(minter.Next())

	branching, ok := out.(models.Branching)
	if !ok {
		return out
	}

	for _, branch := range branching.Branches() {
		fresh := make(models.Steps, 0, len(branch.Steps))
		for _, child := range branch.Steps {
			fresh = append(fresh, withFreshIDs(child, minter))
		}

		// Branch names come from Branches, so WithBranch cannot fail here.
		replaced, _ := branching.WithBranch(branch.Name, fresh)
		branching = replaced.(models.Branching)
	}

	return branching
}

// SetStepName changes the display name of a step.
func SetStepName(doc models.Workflow, id, name string) (models.Workflow, error) {
	steps, err := rewriteStep(doc.Steps, id, func(step models.Step) (models.Step, error) {
		return step.WithName(name), nil
	})
	if err != nil {
		return doc, newMutationError("rename", id, err)
	}

	return withSteps(doc, steps), nil
}

// SetStepConfig sets one configuration key of an action step.
func SetStepConfig(doc models.Workflow, id, key string, value any) (models.Workflow, error) {
	steps, err := rewriteStep(doc.Steps, id, func(step models.Step) (models.Step, error) {
		action, ok := step.(*models.ActionStep)
		if !ok {
			return nil, fmt.Errorf("%w: %s step %s has no configuration", ErrInvalidEdit, step.Kind(), id)
		}

		return action.WithConfig(key, value), nil
	})
	if err != nil {
		return doc, newMutationError("configure", id, err)
	}

	return withSteps(doc, steps), nil
}

// SetPredicate changes the predicate of a condition step.
func SetPredicate(doc models.Workflow, id, predicate string) (models.Workflow, error) {
	steps, err := rewriteStep(doc.Steps, id, func(step models.Step) (models.Step, error) {
		condition, ok := step.(*models.ConditionStep)
		if !ok {
			return nil, fmt.Errorf("%w: %s step %s has no predicate", ErrInvalidEdit, step.Kind(), id)
		}

		return condition.WithPredicate(predicate), nil
	})
	if err != nil {
		return doc, newMutationError("set_predicate", id, err)
	}

	return withSteps(doc, steps), nil
}
