package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/trackpoint/backend/internal/service"
)

type TrackerController interface {
	UpdateLocation(ctx echo.Context) error
	Heartbeat(ctx echo.Context) error
	StopTracking(ctx echo.Context) error
	ListActive(ctx echo.Context) error
	Feed(ctx echo.Context) error
}

type trackerController struct {
	trackerService service.TrackerService
	feedBroker     service.FeedBroker
}

func newTrackerController(trackerService service.TrackerService, feedBroker service.FeedBroker) TrackerController {
	return &trackerController{
		trackerService: trackerService,
		feedBroker:     feedBroker,
	}
}

type updateLocationRequest struct {
	UserKey   string  `json:"user_key"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"max=512"`
}

type userKeyRequest struct {
	UserKey string `json:"user_key" validate:"required"`
}

func (c *trackerController) UpdateLocation(ctx echo.Context) error {
	var request updateLocationRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := ctx.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Anonymous clients get a key assigned on first update.
	if request.UserKey == "" {
		request.UserKey = uuid.NewString()
	}

	c.trackerService.UpdateLocation(request.UserKey, request.Latitude, request.Longitude, request.Address)

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"user_key": request.UserKey,
	})
}

func (c *trackerController) Heartbeat(ctx echo.Context) error {
	var request userKeyRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := ctx.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	c.trackerService.Heartbeat(request.UserKey)

	return ctx.NoContent(http.StatusAccepted)
}

func (c *trackerController) StopTracking(ctx echo.Context) error {
	var request userKeyRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := ctx.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	c.trackerService.StopTracking(request.UserKey)

	return ctx.NoContent(http.StatusAccepted)
}

func (c *trackerController) ListActive(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.trackerService.ListActive())
}

// Feed streams location updates to the client as server-sent events until
// the client disconnects.
func (c *trackerController) Feed(ctx echo.Context) error {
	subscriber := c.feedBroker.Subscribe(uuid.NewString())
	defer c.feedBroker.Unsubscribe(subscriber.ID)

	response := ctx.Response()
	response.Header().Set(echo.HeaderContentType, "text/event-stream")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)
	response.Flush()

	for {
		select {
		case update, ok := <-subscriber.Updates:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(response, "data: %s\n\n", payload); err != nil {
				return nil
			}
			response.Flush()
		case <-ctx.Request().Context().Done():
			return nil
		}
	}
}
