package domain

import "time"

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
)

type Order struct {
	ID        string      `json:"id"`
	RequestID string      `json:"request_id,omitempty"`
	RecordID  string      `json:"record_id"`
	Quantity  int         `json:"quantity"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type PlaceOrder struct {
	RequestID string `json:"request_id"`
	RecordID  string `json:"record_id"`
	Quantity  int    `json:"quantity"`
}

func (p PlaceOrder) Validate() error {
	if p.RecordID == "" {
		return BadRequest("record_id is required")
	}
	if p.Quantity <= 0 {
		return BadRequest("quantity must be positive")
	}
	return nil
}
