// Package queries contains read use cases for the orders module.
package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// OrderDTO is the polling view of an order. Invoice and email completeness
// are eventually consistent and only visible here.
type OrderDTO struct {
	ID               string         `json:"id"`
	IntentID         string         `json:"intent_id"`
	Stage            string         `json:"stage"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentID        string         `json:"payment_id,omitempty"`
	InvoiceGenerated bool           `json:"invoice_generated"`
	InvoiceURL       string         `json:"invoice_url,omitempty"`
	EmailSent        bool           `json:"email_sent"`
	Items            []OrderItemDTO `json:"items"`
	Total            MoneyDTO       `json:"total"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type OrderItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type MoneyDTO struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

// GetOrderQuery retrieves an order by its id or by its gateway intent id.
// Exactly one of the fields is expected.
type GetOrderQuery struct {
	OrderID  string
	IntentID string
}

type GetOrderHandler struct {
	repo domain.OrderRepository
}

func NewGetOrderHandler(repo domain.OrderRepository) *GetOrderHandler {
	return &GetOrderHandler{repo: repo}
}

func (h *GetOrderHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderDTO, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case query.OrderID != "":
		orderID, perr := types.ParseOrderID(query.OrderID)
		if perr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, perr)
		}
		order, err = h.repo.FindByID(ctx, orderID)
	case query.IntentID != "":
		order, err = h.repo.FindByIntentID(ctx, query.IntentID)
	default:
		return nil, fmt.Errorf("%w: order id or intent id is required", domain.ErrInvalidRequest)
	}
	if err != nil {
		return nil, err
	}

	return toOrderDTO(order), nil
}

func toOrderDTO(order *domain.Order) *OrderDTO {
	currency := order.Total().Currency()
	exp := types.CurrencyExponent(currency)

	items := make([]OrderItemDTO, len(order.Items()))
	for i, item := range order.Items() {
		items[i] = OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(exp),
			Subtotal:    item.Subtotal().StringFixed(exp),
		}
	}

	return &OrderDTO{
		ID:               order.ID().String(),
		IntentID:         order.IntentID(),
		Stage:            order.Stage().String(),
		Status:           order.Status().String(),
		PaymentStatus:    order.PaymentStatus().String(),
		PaymentID:        order.GatewayPaymentID(),
		InvoiceGenerated: order.InvoiceGenerated(),
		InvoiceURL:       order.InvoiceURL(),
		EmailSent:        order.EmailSent(),
		Items:            items,
		Total: MoneyDTO{
			Amount:    order.Total().Amount(),
			Currency:  currency,
			Formatted: order.Total().Format(),
		},
		CreatedAt: order.CreatedAt(),
		UpdatedAt: order.UpdatedAt(),
	}
}
