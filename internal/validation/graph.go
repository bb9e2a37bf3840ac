package validation

import (
	"fmt"
	"regexp"

	"github.com/loomworks/loom/pkg/schema"
)

// stepIDPattern is the grammar every step id must match: exactly 10
// characters from [A-Za-z0-9_-].
var stepIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10}$`)

// graphWalk carries traversal state for a single validation pass.
type graphWalk struct {
	result *schema.ValidationResult

	// firstSeen maps each id to the path where it was first encountered,
	// so duplicate reports can point at both occurrences.
	firstSeen map[string]string

	// visiting tracks the inline steps on the current DFS stack (cycle
	// detection); done tracks inline steps already fully walked so shared
	// pointers are not reported twice.
	visiting map[*schema.Step]bool
	done     map[*schema.Step]bool
}

// validateGraph walks every root step and every inline nested step under
// every edge kind, reporting missing, malformed, and duplicate ids. By-id
// references are deliberately not resolved: a definition may reference a
// step that will be added later in the same editing session.
func validateGraph(def *schema.WorkflowDefinition) *schema.ValidationResult {
	w := &graphWalk{
		result:    &schema.ValidationResult{},
		firstSeen: make(map[string]string),
		visiting:  make(map[*schema.Step]bool),
		done:      make(map[*schema.Step]bool),
	}
	for i := range def.Steps {
		w.walkStep(&def.Steps[i], fmt.Sprintf("steps[%d]", i))
	}
	return w.result
}

func (w *graphWalk) walkStep(step *schema.Step, path string) {
	if w.done[step] {
		return
	}
	if w.visiting[step] {
		// A cycle through inline steps would recurse forever; report it and
		// stop here. Cycles through by-id references are legal since those
		// edges are never followed.
		w.result.AddError(path, schema.ViolationInlineCycle, step.ID,
			fmt.Sprintf("inline step %q is nested inside itself", step.ID))
		return
	}
	w.visiting[step] = true
	defer func() {
		delete(w.visiting, step)
		w.done[step] = true
	}()

	w.checkID(step, path)

	for i := range step.Next {
		w.walkRef(step.Next[i], fmt.Sprintf("%s.next[%d]", path, i))
	}
	if step.OnConditionPass != nil {
		w.walkRef(*step.OnConditionPass, path+".onConditionPass")
	}
	if step.OnConditionFail != nil {
		w.walkRef(*step.OnConditionFail, path+".onConditionFail")
	}
	for i := range step.Conditions {
		w.walkRef(step.Conditions[i].Next, fmt.Sprintf("%s.conditions[%d].next", path, i))
	}
	if step.DefaultNext != nil {
		w.walkRef(*step.DefaultNext, path+".defaultNext")
	}
	if step.OnError != nil {
		w.walkRef(*step.OnError, path+".onError")
	}
	if step.OnTimeout != nil {
		w.walkRef(*step.OnTimeout, path+".onTimeout")
	}
}

// walkRef recurses into inline steps only. By-id references are left alone.
func (w *graphWalk) walkRef(ref schema.StepRef, path string) {
	if ref.Inline != nil {
		w.walkStep(ref.Inline, path)
	}
}

func (w *graphWalk) checkID(step *schema.Step, path string) {
	switch {
	case step.ID == "":
		w.result.AddError(path, schema.ViolationMissingID, "",
			"step has no id")
	case !stepIDPattern.MatchString(step.ID):
		w.result.AddError(path, schema.ViolationMalformedID, step.ID,
			fmt.Sprintf("step id %q must be exactly 10 characters from [A-Za-z0-9_-]", step.ID))
	default:
		first, seen := w.firstSeen[step.ID]
		if !seen {
			w.firstSeen[step.ID] = path
			return
		}
		w.result.AddError(path, schema.ViolationDuplicateID, step.ID,
			fmt.Sprintf("step id %q already used at %s", step.ID, first))
	}
}
