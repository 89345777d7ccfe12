package domain

// Status represents the fulfillment status of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFulfilled  Status = "fulfilled"
	StatusFailed     Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusFulfilled, StatusFailed:
		return true
	default:
		return false
	}
}

// PaymentStatus represents what the payment gateway has confirmed for an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) String() string { return string(s) }

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	default:
		return false
	}
}

// Step identifies a best-effort fulfillment step that runs after payment.
type Step string

const (
	StepInvoice      Step = "invoice"
	StepNotification Step = "notification"
)

func (s Step) String() string { return string(s) }

// Stage is the single reconciliation state of an order, derived from its
// persisted columns.
//
// Transitions (each one conditional write in the OrderRepository):
//
//	MarkPaid             pending|failed -> paid      guard: payment_status != paid
//	MarkFailed           pending -> failed           guard: payment_status = pending
//	ClaimStep(invoice)   paid (lease only)           guard: paid, not generated, not abandoned, lease free
//	CompleteInvoice      paid -> invoiced            guard: paid, not generated
//	ClaimStep(notify)    paid|invoiced (lease only)  guard: paid, not sent, not abandoned, lease free
//	CompleteNotification paid|invoiced -> fulfilled  guard: paid, not sent
//	ReleaseStep          lease cleared, attempts+1   guard: step not done, caller holds lease
type Stage string

const (
	StagePending   Stage = "pending"
	StagePaid      Stage = "paid"
	StageInvoiced  Stage = "invoiced"
	StageFulfilled Stage = "fulfilled"
	StageFailed    Stage = "failed"
)

func (s Stage) String() string { return string(s) }
