// model/rental.go
package model

type Rental struct {
	ID               int64 `json:"id"`
	RentalDate       Date  `json:"rental_date"`
	ReturnDate       Date  `json:"return_date"`
	ActualReturnDate *Date `json:"actual_return_date,omitempty"`
	CarID            int64 `json:"car_id"`
	UserID           int64 `json:"user_id"`
	Deleted          bool  `json:"-"`
}

// Active reports whether the rental has not been returned yet.
func (r *Rental) Active() bool { return r.ActualReturnDate == nil }

// Overdue reports whether the rental is active past its return date.
func (r *Rental) Overdue(today Date) bool {
	return r.Active() && r.ReturnDate.Before(today)
}
