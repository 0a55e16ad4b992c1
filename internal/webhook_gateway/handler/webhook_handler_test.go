package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) Process(ctx context.Context, event *shared.PaymentEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func newWebhookRouter(mockService *MockEventService) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	handler := NewWebhookHandler(logger, NewSignatureVerifier(testWebhookSecret), mockService)

	router := gin.Default()
	router.POST("/webhooks/provider", handler.HandleProviderEvent)
	return router
}

func postSignedWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func webhookBody(t *testing.T, event ProviderWebhookEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestWebhookHandler_HandleProviderEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("PaymentCompleted", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		contributionID := uuid.New()
		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_completed",
			Type: shared.EventTypePaymentCompleted,
			Data: ProviderWebhookEventData{
				ContributionID: contributionID.String(),
				AmountUnits:    4500,
				Currency:       "USD",
			},
		})
		mockService.On("Process", mock.Anything, mock.MatchedBy(func(event *shared.PaymentEvent) bool {
			return event.EventID == "evt_completed" &&
				event.Type == shared.EventTypePaymentCompleted &&
				event.ContributionID == contributionID &&
				event.AmountUnits == 4500
		})).Return(false, nil)

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		data, ok := response["data"].(map[string]interface{})
		require.True(t, ok, "'data' field should be a map")
		assert.Equal(t, "evt_completed", data["event_id"])
		assert.Equal(t, false, data["duplicate"])

		mockService.AssertExpectations(t)
	})

	t.Run("DuplicateEventAcknowledged", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_dup",
			Type: shared.EventTypePaymentCompleted,
			Data: ProviderWebhookEventData{ContributionID: uuid.New().String(), AmountUnits: 4500},
		})
		mockService.On("Process", mock.Anything, mock.Anything).Return(true, nil)

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, true, data["duplicate"])
	})

	t.Run("ChargeRefunded", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_refund",
			Type: shared.EventTypeChargeRefunded,
			Data: ProviderWebhookEventData{
				PaymentReference: "py_123",
				AmountUnits:      4500,
				AmountRefunded:   2250,
				Currency:         "USD",
			},
		})
		mockService.On("Process", mock.Anything, mock.MatchedBy(func(event *shared.PaymentEvent) bool {
			return event.Type == shared.EventTypeChargeRefunded &&
				event.PaymentReference == "py_123" &&
				event.AmountRefunded == 2250
		})).Return(false, nil)

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{ID: "evt_1", Type: shared.EventTypePaymentCompleted})

		rr := postSignedWebhook(router, body, signBody("whsec_wrong", body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockService.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{ID: "evt_1", Type: shared.EventTypePaymentCompleted})

		rr := postSignedWebhook(router, body, "")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := []byte(`{"id": "evt_1",`)

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MissingEventID", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{Type: shared.EventTypePaymentCompleted})

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("InvalidContributionID", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_bad",
			Type: shared.EventTypePaymentCompleted,
			Data: ProviderWebhookEventData{ContributionID: "not-a-uuid"},
		})

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("RefundWithoutPaymentReference", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_noref",
			Type: shared.EventTypeChargeRefunded,
		})

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("UnhandledTypeAcknowledgedAndIgnored", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_other",
			Type: "customer.created",
		})

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, true, data["ignored"])

		mockService.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("ProcessingError", func(t *testing.T) {
		mockService := new(MockEventService)
		router := newWebhookRouter(mockService)

		body := webhookBody(t, ProviderWebhookEvent{
			ID:   "evt_fail",
			Type: shared.EventTypePaymentCompleted,
			Data: ProviderWebhookEventData{ContributionID: uuid.New().String(), AmountUnits: 4500},
		})
		mockService.On("Process", mock.Anything, mock.Anything).Return(false, errors.New("kafka down"))

		rr := postSignedWebhook(router, body, signBody(testWebhookSecret, body))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
