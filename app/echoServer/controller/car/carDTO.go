package car

type CarReq struct {
	Model     string `json:"model" validate:"required"`
	Brand     string `json:"brand" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Inventory int64  `json:"inventory" validate:"gte=0"`
	Fee       string `json:"fee" validate:"required"` // decimal string, per-day rate
}
