package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	authctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/auth"
	carctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/car"
	paymentctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/payment"
	rentalctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/rental"
)

type C struct {
	Auth      *authctrl.Controller
	Car       *carctrl.Controller
	Rental    *rentalctrl.Controller
	Payment   *paymentctrl.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Gateway redirect targets, no auth: the session id is the secret.
	pub.GET("/payments/success", c.Payment.Success)
	pub.GET("/payments/cancel", c.Payment.Cancel)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	auth.Use(claimsToContext)

	// Cars
	auth.GET("/cars", c.Car.List)
	auth.GET("/cars/:id", c.Car.Detail)
	// Manager endpoints
	auth.POST("/cars", c.Car.Create)
	auth.PUT("/cars/:id", c.Car.Update)
	auth.DELETE("/cars/:id", c.Car.Delete)

	// Rentals
	auth.POST("/rentals", c.Rental.Create)
	auth.GET("/rentals", c.Rental.List)
	auth.GET("/rentals/:id", c.Rental.Detail)
	auth.POST("/rentals/:id/return", c.Rental.Return)

	// Payments
	auth.POST("/payments", c.Payment.Create)
	auth.GET("/payments/my", c.Payment.My)
	auth.POST("/payments/renew/:id", c.Payment.Renew)
}

// claimsToContext copies sub/email/role claims into the echo context for
// the controllers.
func claimsToContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get("user").(*jwt.Token)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		sub, ok := claims["sub"].(float64)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		ctx.Set("user_id", int64(sub))
		if email, ok := claims["email"].(string); ok {
			ctx.Set("email", email)
		}
		if role, ok := claims["role"].(string); ok {
			ctx.Set("role", role)
		}
		return next(ctx)
	}
}
