// model/payment.go
package model

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentCancel  PaymentStatus = "CANCEL"
	PaymentExpired PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

// Payment references its rental by id only; it is never deleted, only
// moved between statuses.
type Payment struct {
	ID          int64           `json:"id"`
	RentalID    int64           `json:"rental_id"`
	Status      PaymentStatus   `json:"status"`
	Type        PaymentType     `json:"type"`
	SessionID   string          `json:"session_id"`
	SessionURL  string          `json:"session_url"`
	AmountToPay decimal.Decimal `json:"amount_to_pay"` // minor units (cents)
}
