package commands

import "fmt"

// Trigger names the entry point that asked for reconciliation.
type Trigger string

const (
	TriggerConfirmation Trigger = "confirmation"
	TriggerWebhook      Trigger = "webhook"
	TriggerManual       Trigger = "manual"
)

// StepStatus is the result of one best-effort fulfillment step.
type StepStatus string

const (
	// StepSkipped: already done, abandoned, or leased by another trigger.
	StepSkipped   StepStatus = "skipped"
	StepSucceeded StepStatus = "succeeded"
	// StepFailed is non-fatal; the lease was released for a later trigger.
	StepFailed    StepStatus = "failed"
	// StepDeferred: notification held back because the invoice step is
	// still in flight elsewhere.
	StepDeferred  StepStatus = "deferred"
	// StepScheduled: running in the background after the response.
	StepScheduled StepStatus = "scheduled"
)

// StepOutcome reports a side-effect step without failing the reconciliation.
type StepOutcome struct {
	Status StepStatus
	Err    error
}

func (o StepOutcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Status, o.Err)
	}
	return string(o.Status)
}

// Outcome describes what one reconciliation did.
type Outcome struct {
	OrderID          string
	AlreadyProcessed bool
	// Transitioned is true for the single trigger that moved the order to paid.
	Transitioned bool
	Invoice      StepOutcome
	Notification StepOutcome
}
