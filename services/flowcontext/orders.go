package flowcontext

import (
	"context"
	"time"

	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

// Order is the order header as read from the commerce store.
type Order struct {
	ID                string    `json:"id"`
	OrderNumber       string    `json:"orderNumber"`
	CustomerName      string    `json:"customerName"`
	CustomerEmail     string    `json:"customerEmail"`
	CreatedAt         time.Time `json:"createdAt"`
	TotalPrice        float64   `json:"totalPrice"`
	Currency          string    `json:"currency"`
	FulfillmentStatus string    `json:"fulfillmentStatus"`
	TrackingNumber    string    `json:"trackingNumber,omitempty"`
}

// LineItem is one product on an order together with its warranty terms.
type LineItem struct {
	ID           string         `json:"id"`
	ProductName  string         `json:"productName"`
	VariantTitle string         `json:"variantTitle,omitempty"`
	Quantity     int            `json:"quantity"`
	Price        float64        `json:"price"`
	Warranty     warranty.Terms `json:"warranty"`
}

// OrderStore reads orders linked to support threads.
//
// OrderIDForThread returns "" when the thread has no linked order and GetOrder
// returns nil when the order does not exist; neither case is an error.
type OrderStore interface {
	OrderIDForThread(ctx context.Context, threadID string) (string, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetLineItems(ctx context.Context, orderID string) ([]LineItem, error)
}
