package rental

type CreateRentalReq struct {
	CarID      int64  `json:"car_id" validate:"required,gt=0"`
	RentalDate string `json:"rental_date" validate:"required,datetime=2006-01-02"`
	ReturnDate string `json:"return_date" validate:"required,datetime=2006-01-02"`
}
