package delivery

import (
	"context"
	"net/http"
	"strconv"

	"foodie-delivery/internal/models"
	"foodie-delivery/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Assigner is the manual-accept entry point of the assignment engine.
type Assigner interface {
	Accept(ctx context.Context, deliveryID, riderID string) (*models.Delivery, error)
}

// Handler handles HTTP requests for deliveries.
type Handler struct {
	svc      ServiceInterface
	assigner Assigner
}

// NewHandler creates a new delivery handler.
func NewHandler(svc ServiceInterface, assigner Assigner) *Handler {
	return &Handler{svc: svc, assigner: assigner}
}

// Create handles POST /deliveries.
func (h *Handler) Create(c echo.Context) error {
	var req models.CreateDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	d, err := h.svc.CreateDelivery(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, d)
}

// Get handles GET /deliveries/:id.
func (h *Handler) Get(c echo.Context) error {
	d, err := h.svc.GetDelivery(c.Request().Context(), c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// GetByOrder handles GET /deliveries/order/:orderId.
func (h *Handler) GetByOrder(c echo.Context) error {
	d, err := h.svc.GetDeliveryByOrder(c.Request().Context(), c.Param("orderId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// ListByStatus handles GET /deliveries/status/:status.
func (h *Handler) ListByStatus(c echo.Context) error {
	status := models.Status(c.Param("status"))
	if !status.Valid() {
		return utils.RespondWithError(c, http.StatusBadRequest, "unknown delivery status")
	}

	deliveries, err := h.svc.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, deliveries)
}

// ListByRider handles GET /deliveries/rider/:riderId.
func (h *Handler) ListByRider(c echo.Context) error {
	deliveries, err := h.svc.ListByRider(c.Request().Context(), c.Param("riderId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, deliveries)
}

// GetActiveForRider handles GET /deliveries/rider/:riderId/active.
func (h *Handler) GetActiveForRider(c echo.Context) error {
	d, err := h.svc.GetActiveForRider(c.Request().Context(), c.Param("riderId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// ListNearby handles GET /deliveries/nearby?latitude&longitude&maxDistance.
func (h *Handler) ListNearby(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("latitude"), 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid latitude")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("longitude"), 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid longitude")
	}

	maxDistance := 5.0
	if raw := c.QueryParam("maxDistance"); raw != "" {
		maxDistance, err = strconv.ParseFloat(raw, 64)
		if err != nil || maxDistance <= 0 {
			return utils.RespondWithError(c, http.StatusBadRequest, "invalid maxDistance")
		}
	}

	nearby, err := h.svc.ListNearby(c.Request().Context(), models.GeoPoint{Latitude: lat, Longitude: lon}, maxDistance)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, nearby)
}

// Accept handles PUT /deliveries/:id/accept, the rider-initiated manual
// accept. A lost race returns 409 so the app can prompt the rider to pick
// another delivery.
func (h *Handler) Accept(c echo.Context) error {
	var req models.AcceptDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	d, err := h.assigner.Accept(c.Request().Context(), c.Param("id"), req.RiderID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// UpdateStatus handles PUT /deliveries/:id/status, the authoritative
// rider-initiated status path.
func (h *Handler) UpdateStatus(c echo.Context) error {
	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if !req.Status.Valid() {
		return utils.RespondWithError(c, http.StatusBadRequest, "unknown delivery status")
	}

	d, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, d)
}

// UpdateRiderLocation handles PUT /deliveries/:id/location, the HTTP
// fallback for clients without a live socket. It acknowledges only;
// broadcast is the socket path's job.
func (h *Handler) UpdateRiderLocation(c echo.Context) error {
	var req models.RiderLocationRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	location := models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := h.svc.UpdateRiderLocation(c.Request().Context(), c.Param("id"), location); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// Track handles GET /deliveries/:id/track.
func (h *Handler) Track(c echo.Context) error {
	track, err := h.svc.Track(c.Request().Context(), c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, track)
}
