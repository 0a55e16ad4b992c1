package handler

// ProviderWebhookEvent represents the provider's webhook payload
type ProviderWebhookEvent struct {
	ID   string                   `json:"id"`
	Type string                   `json:"type"`
	Data ProviderWebhookEventData `json:"data"`
}

// ProviderWebhookEventData carries the event-type-specific fields
type ProviderWebhookEventData struct {
	ContributionID   string `json:"contribution_id,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	AmountUnits      int64  `json:"amount_units,omitempty"`
	AmountRefunded   int64  `json:"amount_refunded,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

// WebhookAckResponse represents the webhook acknowledgement in API responses
type WebhookAckResponse struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Ignored   bool   `json:"ignored,omitempty"`
}
