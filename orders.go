package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusVerifying    OrderStatus = "verifying"
	OrderStatusProcessing   OrderStatus = "processing"
	OrderStatusManualReview OrderStatus = "manual_review"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusFailed       OrderStatus = "failed"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

//go:generate reform

// Order is the projection of a shop order the reconciliation engine works with.
// The engine only ever moves an order out of "verifying"; all later transitions
// belong to the delivery pipeline.
//
//reform:orders
type Order struct {
	ID            string          `reform:"id,pk"`
	TotalAmount   decimal.Decimal `reform:"total_amount"`
	RemitterName  *string         `reform:"remitter_name"` // name supplied at checkout, may be null
	Status        OrderStatus     `reform:"status"`
	GameName      string          `reform:"game_name"`
	ProductName   string          `reform:"product_name"`
	CustomerName  *string         `reform:"customer_name"`
	CustomerEmail *string         `reform:"customer_email"`
	CreatedAt     time.Time       `reform:"created_at"`
	UpdatedAt     time.Time       `reform:"updated_at"`
}

func (o *Order) BeforeInsert() error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = o.CreatedAt
	return nil
}

func (o *Order) BeforeUpdate() error {
	o.UpdatedAt = time.Now()
	return nil
}
