package provider

import (
	"context"
	"fmt"
)

// TransferRequest describes an outgoing payout to a recipient's provider account.
type TransferRequest struct {
	DestinationAccountID string `json:"destination"`
	AmountUnits          int64  `json:"amount"`
	Currency             string `json:"currency"`
	TransferGroup        string `json:"transfer_group,omitempty"`
	Description          string `json:"description,omitempty"`
}

// Transfer is the provider's record of an executed payout.
type Transfer struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Reversed bool   `json:"reversed"`
}

// Reversal is the provider's record of a (possibly partial) transfer reversal.
type Reversal struct {
	ID          string `json:"id"`
	TransferID  string `json:"transfer_id"`
	AmountUnits int64  `json:"amount"`
}

// Client is the payment provider's transfer API surface used by the processor.
// Every mutating call carries an idempotency key so retries after crashes or
// timeouts cannot move money twice.
type Client interface {
	CreateTransfer(ctx context.Context, idempotencyKey string, req *TransferRequest) (*Transfer, error)
	ReverseTransfer(ctx context.Context, idempotencyKey string, transferID string, amountUnits int64) (*Reversal, error)
}

// APIError carries the provider's HTTP status and message for failed calls.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error (status %d, code %q): %s", e.StatusCode, e.Code, e.Message)
}
