package capture

import (
	"fmt"

	"bnpl-gateway/internal/model"
)

// transitions lists the legal non-failure moves per path. Any non-terminal
// state may also move to FAILED. The redirect path skips integrity
// verification: its local order exists before the shopper leaves.
var transitions = map[model.FlowPath]map[model.FlowState][]model.FlowState{
	model.PathExpress: {
		model.StateInitiated:            {model.StateProviderOrderCreated},
		model.StateProviderOrderCreated: {model.StateReturned},
		model.StateReturned:             {model.StateIntegrityVerified},
		model.StateIntegrityVerified:    {model.StateLocalOrderCreated},
		model.StateLocalOrderCreated:    {model.StateCaptured},
	},
	model.PathRedirect: {
		model.StateInitiated:            {model.StateProviderOrderCreated},
		model.StateProviderOrderCreated: {model.StateReturned},
		model.StateReturned:             {model.StateLocalOrderCreated},
		model.StateLocalOrderCreated:    {model.StateCaptured},
	},
}

// CanTransition reports whether a flow on path may move from one state to another.
func CanTransition(path model.FlowPath, from, to model.FlowState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == model.StateFailed {
		return true
	}
	for _, next := range transitions[path][from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves rec to the next state. An illegal move is a programming
// error and is reported as an internal error.
func (o *Orchestrator) advance(rec *model.FlowRecord, to model.FlowState) error {
	if !CanTransition(rec.Path, rec.State, to) {
		return model.NewInternalError(fmt.Errorf("illegal %s flow transition %s -> %s", rec.Path, rec.State, to))
	}
	rec.State = to
	rec.UpdatedAt = o.now()
	return nil
}
