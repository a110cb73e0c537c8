package rental

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/AntonBabychP1T/ca/app/echoServer/jwtx"
	"github.com/AntonBabychP1T/ca/model"
	rentalsvc "github.com/AntonBabychP1T/ca/service/rental"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type Controller struct {
	Svc rentalsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/rentals
func (ct *Controller) Create(c echo.Context) error {
	var req CreateRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	rentalDate, err := model.ParseDate(req.RentalDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental_date"})
	}
	returnDate, err := model.ParseDate(req.ReturnDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid return_date"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Create(c.Request().Context(), uid, req.CarID, rentalDate, returnDate)
	if err != nil {
		return ct.mapErr(c, "rental create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /v1/rentals?is_active=true
func (ct *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	active := c.QueryParam("is_active") != "false"

	rows, err := ct.Svc.List(c.Request().Context(), uid, active)
	if err != nil {
		return ct.mapErr(c, "rental list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/rentals/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Get(c.Request().Context(), id, uid)
	if err != nil {
		return ct.mapErr(c, "rental detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/rentals/:id/return
func (ct *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Return(c.Request().Context(), id, uid)
	if err != nil {
		return ct.mapErr(c, "rental return", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (ct *Controller) mapErr(c echo.Context, op string, err error) error {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "rental not found"})
	case apperr.Conflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": apperr.ReasonOf(err)})
	case apperr.Forbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": apperr.ReasonOf(err)})
	case apperr.InvalidState:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": apperr.ReasonOf(err)})
	default:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
