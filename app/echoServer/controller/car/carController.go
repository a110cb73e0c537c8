package car

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/AntonBabychP1T/ca/app/echoServer/jwtx"
	"github.com/AntonBabychP1T/ca/model"
	carsvc "github.com/AntonBabychP1T/ca/service/car"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type Controller struct {
	Svc carsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (ct *Controller) bindCar(c echo.Context) (*model.Car, error) {
	var req CarReq
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if err := ct.V.Struct(req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "validation error")
	}
	fee, err := decimal.NewFromString(req.Fee)
	if err != nil || !fee.IsPositive() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid fee")
	}
	return &model.Car{
		Model:     req.Model,
		Brand:     req.Brand,
		Type:      model.CarType(req.Type),
		Inventory: req.Inventory,
		Fee:       fee,
	}, nil
}

// POST /v1/cars  (manager)
func (ct *Controller) Create(c echo.Context) error {
	if !jwtx.IsManager(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	car, err := ct.bindCar(c)
	if err != nil {
		return err
	}
	out, err := ct.Svc.Create(c.Request().Context(), car)
	if err != nil {
		if apperr.KindOf(err) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		}
		ct.Log.Error("car create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /v1/cars
func (ct *Controller) List(c echo.Context) error {
	cars, err := ct.Svc.List(c.Request().Context())
	if err != nil {
		ct.Log.Error("car list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": cars})
}

// GET /v1/cars/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	car, err := ct.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "car not found"})
		}
		ct.Log.Error("car detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, car)
}

// PUT /v1/cars/:id  (manager)
func (ct *Controller) Update(c echo.Context) error {
	if !jwtx.IsManager(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	car, err := ct.bindCar(c)
	if err != nil {
		return err
	}
	car.ID = id
	out, err := ct.Svc.Update(c.Request().Context(), car)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "car not found"})
		}
		ct.Log.Error("car update", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /v1/cars/:id  (manager)
func (ct *Controller) Delete(c echo.Context) error {
	if !jwtx.IsManager(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := ct.Svc.Delete(c.Request().Context(), id); err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "car not found"})
		}
		ct.Log.Error("car delete", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}
