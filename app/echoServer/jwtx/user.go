// app/echoServer/jwtx/user.go
package jwtx

import (
	"errors"

	"github.com/labstack/echo/v4"
)

func UserIDFromContext(c echo.Context) (int64, error) {
	if id, ok := c.Get("user_id").(int64); ok {
		return id, nil
	}
	return 0, errors.New("user_id missing in context")
}

func EmailFromContext(c echo.Context) (string, error) {
	if s, ok := c.Get("email").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("email missing in context")
}

func IsManager(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "manager"
}
