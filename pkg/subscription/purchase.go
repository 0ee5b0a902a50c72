package subscription

// PurchaseState is a step of a single purchase attempt.
type PurchaseState string

const (
	PurchaseInactive          PurchaseState = "inactive"
	PurchasePreFlowInProgress PurchaseState = "pre_flow_in_progress"
	PurchasePreFlowFinished   PurchaseState = "pre_flow_finished"
	PurchaseInProgress        PurchaseState = "in_progress"
	PurchaseSuccess           PurchaseState = "success"
	PurchaseRecovered         PurchaseState = "recovered"
	PurchaseWaiting           PurchaseState = "waiting"
	PurchaseFailure           PurchaseState = "failure"
	PurchaseCanceled          PurchaseState = "canceled"
)

// Name satisfies statemachine.State.
func (s PurchaseState) Name() string {
	return string(s)
}

// IsTerminal reports whether the attempt is over and a new one may start.
// Waiting counts as terminal for the flow even though the purchase itself
// still needs backend confirmation.
func (s PurchaseState) IsTerminal() bool {
	switch s {
	case PurchaseSuccess, PurchaseRecovered, PurchaseWaiting, PurchaseFailure, PurchaseCanceled:
		return true
	}
	return false
}

// IsRunning reports whether an attempt is between start and the store result.
func (s PurchaseState) IsRunning() bool {
	switch s {
	case PurchasePreFlowInProgress, PurchasePreFlowFinished, PurchaseInProgress:
		return true
	}
	return false
}

// CurrentPurchase is the in-memory snapshot of the purchase attempt.
// Reason is set only for PurchaseFailure.
type CurrentPurchase struct {
	State  PurchaseState `json:"state"`
	Reason string        `json:"reason,omitempty"`
}
