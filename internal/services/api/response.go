package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type apiResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorInfo `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, apiResponse{Success: true, Data: data})
}

func respondErr(c echo.Context, status int, code, message string) error {
	return c.JSON(status, apiResponse{Success: false, Error: &errorInfo{Code: code, Message: message}})
}

func badRequest(c echo.Context, code, message string) error {
	return respondErr(c, http.StatusBadRequest, code, message)
}

func notFound(c echo.Context, code, message string) error {
	return respondErr(c, http.StatusNotFound, code, message)
}

func conflict(c echo.Context, code, message string) error {
	return respondErr(c, http.StatusConflict, code, message)
}

func internalErr(c echo.Context) error {
	return respondErr(c, http.StatusInternalServerError, "INTERNAL", "internal error")
}
