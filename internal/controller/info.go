package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type InfoController interface {
	Info(ctx echo.Context) error
}

type infoController struct {
}

func newInfoController() InfoController {
	return &infoController{}
}

func (c *infoController) Info(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"service": "trackpoint",
		"status":  "ok",
	})
}
