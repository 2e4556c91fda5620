package stockorder

// State represents the lifecycle state of a stock order
type State string

const (
	// StateEmpty indicates the order exists but has no line items yet
	StateEmpty State = "empty"
	// StateGenerated indicates line items were generated from ERP inventory
	StateGenerated State = "generated"
	// StateApprovalInProcess indicates an approval run is executing
	StateApprovalInProcess State = "approval_in_process"
	// StateApprovalPending indicates the order awaits user approval
	StateApprovalPending State = "approval_pending"
	// StateFulfilmentPending indicates approved items await fulfilment
	StateFulfilmentPending State = "fulfilment_pending"
	// StateFulfilmentInProcess indicates fulfilment has been opened
	StateFulfilmentInProcess State = "fulfilment_in_process"
	// StateFulfilmentFailure indicates the fulfilment leg failed
	StateFulfilmentFailure State = "fulfilment_failure"
	// StatePushingToERP indicates the transfer order is being pushed
	StatePushingToERP State = "pushing_to_erp"
	// StatePushFailure indicates the transfer-order push failed
	StatePushFailure State = "push_failure"
	// StateReceivingPending indicates the store awaits the delivery
	StateReceivingPending State = "receiving_pending"
	// StateReceivingInProcess indicates a receiving run is executing
	StateReceivingInProcess State = "receiving_in_process"
	// StateReceivingFailure indicates the receiving leg failed fatally
	StateReceivingFailure State = "receiving_failure"
	// StateComplete is the terminal success state
	StateComplete State = "complete"
)

// IsValid checks if the state is a valid State
func (s State) IsValid() bool {
	switch s {
	case StateEmpty, StateGenerated, StateApprovalInProcess, StateApprovalPending,
		StateFulfilmentPending, StateFulfilmentInProcess, StateFulfilmentFailure,
		StatePushingToERP, StatePushFailure, StateReceivingPending,
		StateReceivingInProcess, StateReceivingFailure, StateComplete:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can transition to the target state
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StateEmpty:
		return target == StateGenerated
	case StateGenerated:
		return target == StateApprovalInProcess || target == StateApprovalPending
	case StateApprovalInProcess:
		return target == StateApprovalPending || target == StateGenerated
	case StateApprovalPending:
		return target == StateFulfilmentPending
	case StateFulfilmentPending:
		return target == StateFulfilmentInProcess
	case StateFulfilmentInProcess:
		return target == StateFulfilmentFailure || target == StatePushingToERP
	case StateFulfilmentFailure:
		return target == StateFulfilmentPending
	case StatePushingToERP:
		return target == StatePushFailure || target == StateReceivingPending
	case StatePushFailure:
		return target == StatePushingToERP
	case StateReceivingPending:
		return target == StateReceivingInProcess
	case StateReceivingInProcess:
		return target == StateReceivingFailure || target == StateComplete
	case StateReceivingFailure:
		return target == StateReceivingInProcess
	case StateComplete:
		return false // Terminal state
	}
	return false
}

// AllowsUserEdits returns true if line items may be edited directly in this state
func (s State) AllowsUserEdits() bool {
	switch s {
	case StateGenerated, StateApprovalPending, StateFulfilmentInProcess:
		return true
	}
	return false
}

// IsFailure returns true for the failure states
func (s State) IsFailure() bool {
	switch s {
	case StateFulfilmentFailure, StatePushFailure, StateReceivingFailure:
		return true
	}
	return false
}
