package shared

// EntryStatus defines split entry processing states
type EntryStatus string

const (
	EntryStatusPending     EntryStatus = "PENDING"
	EntryStatusProcessing  EntryStatus = "PROCESSING"
	EntryStatusTransferred EntryStatus = "TRANSFERRED"
	EntryStatusFailed      EntryStatus = "FAILED"
	EntryStatusReversed    EntryStatus = "REVERSED"
)

// PaymentStatus defines contribution payment states
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// DisbursementModel controls how the state-level remainder is handled
type DisbursementModel string

const (
	// DisbursementStateManaged keeps the full remainder at the state node
	DisbursementStateManaged DisbursementModel = "state_managed"
	// DisbursementNationalManaged sub-splits the remainder by active rules
	DisbursementNationalManaged DisbursementModel = "national_managed"
)

// NodeLevel defines recipient hierarchy levels
type NodeLevel string

const (
	NodeLevelNational NodeLevel = "national"
	NodeLevelState    NodeLevel = "state"
	NodeLevelLocal    NodeLevel = "local"
)

// RefundKind tags reversal entries with the refund shape that produced them
type RefundKind string

const (
	RefundKindFull    RefundKind = "full_refund"
	RefundKindPartial RefundKind = "partial_refund"
)
