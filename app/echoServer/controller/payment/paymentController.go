package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/AntonBabychP1T/ca/app/echoServer/jwtx"
	paymentsvc "github.com/AntonBabychP1T/ca/service/payment"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type Controller struct {
	Svc paymentsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CreatePaymentReq struct {
	RentalID int64 `json:"rental_id" validate:"required,gt=0"`
}

// POST /v1/payments
func (ct *Controller) Create(c echo.Context) error {
	var req CreatePaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Create(c.Request().Context(), uid, req.RentalID)
	if err != nil {
		return ct.mapErr(c, "payment create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /v1/payments/my
func (ct *Controller) My(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return ct.mapErr(c, "payment list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/payments/success?session_id=...
func (ct *Controller) Success(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing session_id"})
	}
	out, err := ct.Svc.SettleSuccess(c.Request().Context(), sessionID)
	if err != nil {
		return ct.mapErr(c, "payment success", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/payments/cancel?session_id=...
func (ct *Controller) Cancel(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing session_id"})
	}
	out, err := ct.Svc.SettleCancel(c.Request().Context(), sessionID)
	if err != nil {
		return ct.mapErr(c, "payment cancel", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/payments/renew/:id
func (ct *Controller) Renew(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	email, err := jwtx.EmailFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Renew(c.Request().Context(), id, email)
	if err != nil {
		return ct.mapErr(c, "payment renew", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (ct *Controller) mapErr(c echo.Context, op string, err error) error {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
	case apperr.Forbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": apperr.ReasonOf(err)})
	case apperr.InvalidState:
		return c.JSON(http.StatusConflict, echo.Map{"message": apperr.ReasonOf(err)})
	case apperr.Gateway:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment provider error"})
	default:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
