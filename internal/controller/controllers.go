package controller

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/trackpoint/backend/internal/service"
)

type Controllers interface {
	Tracker() TrackerController
	Info() InfoController

	Route(e *echo.Echo)
}

type controllers struct {
	trackerController TrackerController
	infoController    InfoController
}

func NewControllers(services service.Services) Controllers {
	trackerController := newTrackerController(services.Tracker(), services.Feed())
	infoController := newInfoController()
	return &controllers{
		trackerController: trackerController,
		infoController:    infoController,
	}
}

func (c controllers) Tracker() TrackerController {
	return c.trackerController
}

func (c controllers) Info() InfoController {
	return c.infoController
}

func (c controllers) Route(e *echo.Echo) {
	e.Validator = &requestValidator{validate: validator.New()}

	e.GET("/", c.infoController.Info)
	e.POST("/location", c.trackerController.UpdateLocation)
	e.POST("/heartbeat", c.trackerController.Heartbeat)
	e.POST("/stop", c.trackerController.StopTracking)
	e.GET("/active", c.trackerController.ListActive)
	e.GET("/feed", c.trackerController.Feed)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
