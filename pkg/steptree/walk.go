package steptree

import "github.com/dukex/operion-studio/pkg/models"

// VisitFunc is called for every step in pre-order. Returning false stops the walk.
type VisitFunc func(step models.Step, path models.Path) bool

// Walk visits steps in pre-order: each step, then its branches in declaration order
// (true before false for conditions). It reports whether the walk ran to completion.
func Walk(steps models.Steps, visit VisitFunc) bool {
	return walk(steps, models.Path{}, models.BranchRoot, visit)
}

func walk(steps models.Steps, parent models.Path, branch string, visit VisitFunc) bool {
	for i, step := range steps {
		path := parent.Append(branch, i)

		if !visit(step, path) {
			return false
		}

		branching, ok := step.(models.Branching)
		if !ok {
			continue
		}

		for _, b := range branching.Branches() {
			if !walk(b.Steps, path, b.Name, visit) {
				return false
			}
		}
	}

	return true
}

// Find returns the step with the given id and its path.
func Find(steps models.Steps, id string) (models.Step, models.Path, bool) {
	var (
		found     models.Step
		foundPath models.Path
	)

	Walk(steps, func(step models.Step, path models.Path) bool {
		if step.StepID() == id {
			found = step
			foundPath = path

			return false
		}

		return true
	})

	return found, foundPath, found != nil
}

// Contains reports whether a step with the given id exists anywhere in steps.
func Contains(steps models.Steps, id string) bool {
	_, _, ok := Find(steps, id)

	return ok
}

// IDs returns every step id in pre-order.
func IDs(steps models.Steps) []string {
	ids := make([]string, 0)

	Walk(steps, func(step models.Step, _ models.Path) bool {
		ids = append(ids, step.StepID())

		return true
	})

	return ids
}

// IsWithin reports whether id is ancestorID itself or nested anywhere under it.
func IsWithin(steps models.Steps, ancestorID, id string) bool {
	ancestor, _, ok := Find(steps, ancestorID)
	if !ok {
		return false
	}

	if ancestorID == id {
		return true
	}

	return Contains(children(ancestor), id)
}

// children flattens the branches of a step into one sequence for searching.
func children(step models.Step) models.Steps {
	branching, ok := step.(models.Branching)
	if !ok {
		return nil
	}

	var out models.Steps
	for _, b := range branching.Branches() {
		out = append(out, b.Steps...)
	}

	return out
}
