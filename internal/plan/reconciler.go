package plan

// Reconciler rebuilds a consistent State on the receiving side of the
// stream. Updates may arrive duplicated or out of order; the reducer
// drops anything a newer event for the same step has superseded, so
// any delivery order converges to the same final state.
type Reconciler struct {
	state *State
}

// NewReconciler creates an empty reconciler awaiting a plan event.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// ApplyPlan installs the baseline snapshot. A second plan event
// replaces the whole state: the engine runs one plan at a time.
func (r *Reconciler) ApplyPlan(ev Event) {
	r.state = NewState(Spec{Goal: ev.Goal, Steps: ev.Steps})
}

// ApplyUpdate folds one update into the state. It returns false when
// the event was dropped: no plan installed, unknown step, or a
// sequence number at or below the last one applied to that step.
func (r *Reconciler) ApplyUpdate(u UpdateEvent) bool {
	if r.state == nil {
		return false
	}
	step, ok := r.state.Steps[u.StepID]
	if !ok {
		return false
	}

	// Per-step idempotence: step statuses are monotonic and each
	// transition gets a fresh, larger sequence number, so the
	// highest-numbered event for a step is its latest truth.
	if u.SequenceNumber <= step.SequenceNumber {
		return false
	}

	step.Status = u.Status
	step.SequenceNumber = u.SequenceNumber
	ts := u.Timestamp
	switch u.Status {
	case StatusRunning:
		step.StartedAt = &ts
	case StatusCompleted:
		step.CompletedAt = &ts
		step.OutputPreview = u.OutputPreview
	case StatusFailed, StatusSkipped:
		step.CompletedAt = &ts
		step.Error = u.Error
	}

	if u.SequenceNumber > r.state.LastSequenceNumber {
		r.state.LastSequenceNumber = u.SequenceNumber
	}

	r.recomputePlanStatus()
	return true
}

// State returns the current reconstructed state, nil before the plan
// event arrives.
func (r *Reconciler) State() *State {
	return r.state
}

func (r *Reconciler) recomputePlanStatus() {
	anyFailed := false
	allTerminal := true
	for _, step := range r.state.Steps {
		switch step.Status {
		case StatusFailed:
			anyFailed = true
		case StatusCompleted, StatusSkipped:
		default:
			allTerminal = false
		}
	}

	switch {
	case anyFailed && allTerminal:
		r.state.Status = PlanFailed
	case allTerminal:
		r.state.Status = PlanCompleted
	default:
		r.state.Status = PlanExecuting
	}
}
