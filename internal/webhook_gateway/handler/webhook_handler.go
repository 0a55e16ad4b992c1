package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/webhook_gateway/middleware"
	"github.com/membership-split-service/internal/webhook_gateway/service"
)

// WebhookHandler receives signed provider events and hands them to the
// event service.
type WebhookHandler struct {
	logger       *slog.Logger
	verifier     *SignatureVerifier
	eventService service.EventService
}

func NewWebhookHandler(logger *slog.Logger, verifier *SignatureVerifier, eventService service.EventService) *WebhookHandler {
	return &WebhookHandler{
		logger:       logger,
		verifier:     verifier,
		eventService: eventService,
	}
}

// HandleProviderEvent processes POST /webhooks/provider. The signature is
// verified over the raw body before any parsing. Unknown event types are
// acknowledged and ignored so the provider stops retrying them.
func (h *WebhookHandler) HandleProviderEvent(c *gin.Context) {
	logger := h.logger
	if correlationID := middleware.GetCorrelationID(c); correlationID != "" {
		logger = h.logger.With("correlation_id", correlationID)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Error("Failed to read webhook request body", "error", err)
		RespondBadRequest(c, "failed to read request body")
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(SignatureHeader)) {
		logger.Warn("Rejected webhook with invalid signature", "client_ip", c.ClientIP())
		RespondUnauthorized(c, "invalid webhook signature")
		return
	}

	var webhookEvent ProviderWebhookEvent
	if err := json.Unmarshal(body, &webhookEvent); err != nil {
		logger.Error("Failed to unmarshal webhook payload", "error", err)
		RespondBadRequest(c, "invalid webhook payload")
		return
	}
	if webhookEvent.ID == "" {
		RespondBadRequest(c, "event id is required")
		return
	}

	event, errMsg := h.buildPaymentEvent(&webhookEvent, middleware.GetCorrelationID(c))
	if errMsg != "" {
		RespondBadRequest(c, errMsg)
		return
	}
	if event == nil {
		logger.Info("Ignoring webhook event of unhandled type",
			"event_id", webhookEvent.ID,
			"type", webhookEvent.Type,
		)
		RespondOK(c, WebhookAckResponse{EventID: webhookEvent.ID, Ignored: true})
		return
	}

	duplicate, err := h.eventService.Process(c.Request.Context(), event)
	if err != nil {
		logger.Error("Failed to process provider event",
			"event_id", event.EventID,
			"type", event.Type,
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	RespondOK(c, WebhookAckResponse{EventID: event.EventID, Duplicate: duplicate})
}

// buildPaymentEvent maps the provider payload to the internal event. A nil
// event with an empty message means the type is not handled here.
func (h *WebhookHandler) buildPaymentEvent(webhookEvent *ProviderWebhookEvent, correlationID string) (*shared.PaymentEvent, string) {
	event := &shared.PaymentEvent{
		EventID:       webhookEvent.ID,
		Type:          webhookEvent.Type,
		Currency:      webhookEvent.Data.Currency,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}

	switch webhookEvent.Type {
	case shared.EventTypePaymentCompleted:
		contributionID, err := uuid.Parse(webhookEvent.Data.ContributionID)
		if err != nil {
			return nil, "contribution_id must be a valid UUID"
		}
		event.ContributionID = contributionID
		event.AmountUnits = webhookEvent.Data.AmountUnits
		return event, ""
	case shared.EventTypeChargeRefunded:
		if webhookEvent.Data.PaymentReference == "" {
			return nil, "payment_reference is required"
		}
		event.PaymentReference = webhookEvent.Data.PaymentReference
		event.AmountUnits = webhookEvent.Data.AmountUnits
		event.AmountRefunded = webhookEvent.Data.AmountRefunded
		return event, ""
	default:
		return nil, ""
	}
}
