package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type ActionState string

const (
	ActionPending    ActionState = "pending"
	ActionConfirmed  ActionState = "confirmed"
	ActionRolledBack ActionState = "rolled_back"
)

// PendingAction is a change already shown locally that waits for the
// store's verdict. It settles exactly once.
type PendingAction struct {
	ID   string
	Kind string

	mu    sync.Mutex
	state ActionState
}

func NewPendingAction(kind string) *PendingAction {
	return &PendingAction{ID: uuid.NewString(), Kind: kind, state: ActionPending}
}

func (a *PendingAction) State() ActionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *PendingAction) settle(to ActionState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != ActionPending {
		return false
	}
	a.state = to
	return true
}

func (a *PendingAction) Confirm() bool  { return a.settle(ActionConfirmed) }
func (a *PendingAction) RollBack() bool { return a.settle(ActionRolledBack) }

// PendingSteps are the phases of one optimistic action. Apply and Remote
// are required.
type PendingSteps struct {
	Apply     func(a *PendingAction)
	Remote    func(ctx context.Context) error
	Confirmed func(a *PendingAction)
	// RolledBack runs when Remote fails. It decides what, if anything, of
	// the local change to undo.
	RolledBack func(a *PendingAction, err error)
}

// RunPending applies the local change, performs the remote write and
// settles the action on its result.
func RunPending(ctx context.Context, kind string, steps PendingSteps) (*PendingAction, error) {
	a := NewPendingAction(kind)
	steps.Apply(a)

	if err := steps.Remote(ctx); err != nil {
		if a.RollBack() && steps.RolledBack != nil {
			steps.RolledBack(a, err)
		}
		return a, err
	}
	if a.Confirm() && steps.Confirmed != nil {
		steps.Confirmed(a)
	}
	return a, nil
}
