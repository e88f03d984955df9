package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"foodie-delivery/internal/models"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAssigner serves a canned manual-accept result.
type stubAssigner struct {
	delivery *models.Delivery
	err      error
}

func (a *stubAssigner) Accept(_ context.Context, deliveryID, riderID string) (*models.Delivery, error) {
	if a.err != nil {
		return nil, a.err
	}
	d := *a.delivery
	d.ID = deliveryID
	d.RiderID = &riderID
	d.Status = models.StatusAccepted
	return &d, nil
}

func newHandlerFixture(assigner Assigner) (*Handler, *Service, *fakeRepository) {
	repo := newFakeRepository()
	svc := NewService(repo, nil, nil, nil, zerolog.Nop())
	return NewHandler(svc, assigner), svc, repo
}

func doRequest(h echo.HandlerFunc, method, path, body string, pathParams map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	for k, v := range pathParams {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	_ = h(c)
	return rec
}

func TestHandlerCreate(t *testing.T) {
	h, _, _ := newHandlerFixture(nil)

	body := `{"order_id":"O1","restaurant_location":{"latitude":6.9271,"longitude":79.8612},"customer_location":{"latitude":6.9344,"longitude":79.8428}}`
	rec := doRequest(h.Create, http.MethodPost, "/deliveries", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var d models.Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "O1", d.OrderID)
	assert.Equal(t, models.StatusPending, d.Status)

	// Second create for the same order maps to 409.
	rec = doRequest(h.Create, http.MethodPost, "/deliveries", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerCreateValidation(t *testing.T) {
	h, _, _ := newHandlerFixture(nil)

	rec := doRequest(h.Create, http.MethodPost, "/deliveries", `{"order_id":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h.Create, http.MethodPost, "/deliveries", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetNotFound(t *testing.T) {
	h, _, _ := newHandlerFixture(nil)

	rec := doRequest(h.Get, http.MethodGet, "/deliveries/:id", "", map[string]string{"id": "DLV000404"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
}

func TestHandlerAccept(t *testing.T) {
	assigner := &stubAssigner{delivery: &models.Delivery{OrderID: "O1"}}
	h, svc, _ := newHandlerFixture(assigner)

	d := createTestDelivery(t, svc, "O1")

	rec := doRequest(h.Accept, http.MethodPut, "/deliveries/:id/accept", `{"riderId":"R1"}`, map[string]string{"id": d.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var accepted models.Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "R1", *accepted.RiderID)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
}

func TestHandlerAcceptConflict(t *testing.T) {
	assigner := &stubAssigner{err: models.ErrDeliveryConflict}
	h, svc, _ := newHandlerFixture(assigner)
	d := createTestDelivery(t, svc, "O1")

	rec := doRequest(h.Accept, http.MethodPut, "/deliveries/:id/accept", `{"riderId":"R2"}`, map[string]string{"id": d.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerAcceptRequiresRiderID(t *testing.T) {
	h, _, _ := newHandlerFixture(&stubAssigner{})

	rec := doRequest(h.Accept, http.MethodPut, "/deliveries/:id/accept", `{}`, map[string]string{"id": "DLV000001"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateStatus(t *testing.T) {
	h, svc, repo := newHandlerFixture(nil)
	d := createTestDelivery(t, svc, "O1")
	_, err := repo.TransitionAccept(context.Background(), d.ID, "R1")
	require.NoError(t, err)

	rec := doRequest(h.UpdateStatus, http.MethodPut, "/deliveries/:id/status", `{"status":"collected"}`, map[string]string{"id": d.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusCollected, updated.Status)
}

func TestHandlerUpdateStatusErrors(t *testing.T) {
	h, svc, _ := newHandlerFixture(nil)
	d := createTestDelivery(t, svc, "O1")

	// Unknown status value never reaches the service.
	rec := doRequest(h.UpdateStatus, http.MethodPut, "/deliveries/:id/status", `{"status":"teleported"}`, map[string]string{"id": d.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Illegal jump from pending maps to 409.
	rec = doRequest(h.UpdateStatus, http.MethodPut, "/deliveries/:id/status", `{"status":"delivered"}`, map[string]string{"id": d.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerListNearby(t *testing.T) {
	h, svc, _ := newHandlerFixture(nil)
	createTestDelivery(t, svc, "O1")

	rec := doRequest(h.ListNearby, http.MethodGet, "/deliveries/nearby?latitude=6.9271&longitude=79.8612&maxDistance=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var nearby []models.NearbyDelivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nearby))
	require.Len(t, nearby, 1)
	assert.Equal(t, "O1", nearby[0].OrderID)
}

func TestHandlerListNearbyBadQuery(t *testing.T) {
	h, _, _ := newHandlerFixture(nil)

	rec := doRequest(h.ListNearby, http.MethodGet, "/deliveries/nearby?latitude=abc&longitude=79.86", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h.ListNearby, http.MethodGet, "/deliveries/nearby?latitude=6.92&longitude=79.86&maxDistance=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateRiderLocation(t *testing.T) {
	h, svc, _ := newHandlerFixture(nil)
	d := createTestDelivery(t, svc, "O1")

	rec := doRequest(h.UpdateRiderLocation, http.MethodPut, "/deliveries/:id/location", `{"latitude":6.93,"longitude":79.85}`, map[string]string{"id": d.ID})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(h.UpdateRiderLocation, http.MethodPut, "/deliveries/:id/location", `{"latitude":95,"longitude":79.85}`, map[string]string{"id": d.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTrack(t *testing.T) {
	h, svc, _ := newHandlerFixture(nil)
	d := createTestDelivery(t, svc, "O1")

	rec := doRequest(h.Track, http.MethodGet, "/deliveries/:id/track", "", map[string]string{"id": d.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var track models.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &track))
	assert.Len(t, track.Route, 2)
	assert.True(t, track.TrackingEnabled)
}
