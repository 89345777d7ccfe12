// Package http provides HTTP handlers for the orders module.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rai/storefront-payments/modules/orders/application/commands"
	"github.com/rai/storefront-payments/modules/orders/application/pricing"
	"github.com/rai/storefront-payments/modules/orders/application/queries"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/payments"
)

// maxWebhookBody bounds the raw webhook body read for signature checks.
const maxWebhookBody = 1 << 20

type Handler struct {
	createIntent   *commands.CreateIntentHandler
	confirmPayment *commands.ConfirmPaymentHandler
	webhook        *commands.HandleWebhookHandler
	getOrder       *queries.GetOrderHandler
	logger         *slog.Logger
}

// RegisterRoutes registers the orders module routes to the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	createIntent *commands.CreateIntentHandler,
	confirmPayment *commands.ConfirmPaymentHandler,
	handleWebhook *commands.HandleWebhookHandler,
	getOrder *queries.GetOrderHandler,
	logger *slog.Logger,
) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		createIntent:   createIntent,
		confirmPayment: confirmPayment,
		webhook:        handleWebhook,
		getOrder:       getOrder,
		logger:         logger,
	}

	mux.HandleFunc("POST /orders/intents", h.handleCreateIntent)
	mux.HandleFunc("POST /payments/confirm", h.handleConfirmPayment)
	mux.HandleFunc("POST /payments/webhook", h.handleWebhook)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)
	mux.HandleFunc("GET /orders/by-intent/{intentId}", h.handleGetOrderByIntent)
}

// Request/Response DTOs

type createIntentRequest struct {
	Items            []pricing.RequestedItem `json:"items"`
	Currency         string                  `json:"currency"`
	CustomerSnapshot *customerRequest        `json:"customerSnapshot"`
	// Customer is the older key, read when customerSnapshot is absent.
	Customer *customerRequest `json:"customer"`
}

func (r createIntentRequest) customer() customerRequest {
	switch {
	case r.CustomerSnapshot != nil:
		return *r.CustomerSnapshot
	case r.Customer != nil:
		return *r.Customer
	}
	return customerRequest{}
}

type customerRequest struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Address domain.Address `json:"address"`
}

type createIntentResponse struct {
	IntentID string `json:"intentId"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type confirmPaymentRequest struct {
	IntentID  string `json:"intentId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

type confirmPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handlers

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer := req.customer()
	result, err := h.createIntent.Handle(r.Context(), commands.CreateIntentCommand{
		Items:    req.Items,
		Currency: req.Currency,
		Customer: commands.CustomerInput{
			Name:    customer.Name,
			Email:   customer.Email,
			Phone:   customer.Phone,
			Address: customer.Address,
		},
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createIntentResponse{
		IntentID: result.IntentID,
		OrderID:  result.OrderID,
		Amount:   result.Amount,
		Currency: result.Currency,
	})
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.confirmPayment.Handle(r.Context(), commands.ConfirmPaymentCommand{
		IntentID:  req.IntentID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if errors.Is(err, payments.ErrSignatureInvalid) {
		writeJSON(w, http.StatusOK, confirmPaymentResponse{Success: false, Message: "Payment verification failed"})
		return
	}
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmPaymentResponse{
		Success: result.Success,
		Message: result.Message,
		OrderID: result.OrderID,
	})
}

// handleWebhook hashes the exact bytes received; the body is parsed only
// after the signature check.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if len(body) > maxWebhookBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	result, err := h.webhook.Handle(r.Context(), commands.HandleWebhookCommand{
		Body:      body,
		Signature: r.Header.Get(payments.SignatureHeader),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Status: string(result.Disposition)})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "order ID is required")
		return
	}

	order, err := h.getOrder.Handle(r.Context(), queries.GetOrderQuery{OrderID: id})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleGetOrderByIntent(w http.ResponseWriter, r *http.Request) {
	order, err := h.getOrder.Handle(r.Context(), queries.GetOrderQuery{IntentID: r.PathValue("intentId")})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Helper functions

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, payments.ErrMalformedWebhook):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrPricing):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, payments.ErrSignatureInvalid):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payments.ErrGateway):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	case errors.Is(err, payments.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
