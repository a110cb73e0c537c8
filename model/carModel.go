// model/car.go
package model

import "github.com/shopspring/decimal"

type CarType string

const (
	CarSedan     CarType = "SEDAN"
	CarSuv       CarType = "SUV"
	CarCuv       CarType = "CUV"
	CarCoupe     CarType = "COUPE"
	CarHatchback CarType = "HATCHBACK"
	CarMinivan   CarType = "MINIVAN"
	CarUniversal CarType = "UNIVERSAL"
	CarMicro     CarType = "MICRO"
)

func (t CarType) Valid() bool {
	switch t {
	case CarSedan, CarSuv, CarCuv, CarCoupe, CarHatchback, CarMinivan, CarUniversal, CarMicro:
		return true
	}
	return false
}

type Car struct {
	ID        int64           `json:"id"`
	Model     string          `json:"model"`
	Brand     string          `json:"brand"`
	Type      CarType         `json:"type"`
	Inventory int64           `json:"inventory"`
	Fee       decimal.Decimal `json:"fee"` // per-day rate
	Deleted   bool            `json:"-"`
}
