package workflow

// Trigger represents an actor action that can cause a state transition
type Trigger string

const (
	TriggerSubmit          Trigger = "SUBMIT"
	TriggerApprove         Trigger = "APPROVE"
	TriggerDecline         Trigger = "DECLINE"
	TriggerReturn          Trigger = "RETURN"
	TriggerComplete        Trigger = "COMPLETE"
	TriggerStartProcessing Trigger = "START_PROCESSING"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
