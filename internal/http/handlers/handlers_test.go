// README: Handler tests over an in-memory wiring of the full router.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "rumbo/internal/http"
	"rumbo/internal/modules/chat"
	"rumbo/internal/modules/matching"
	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/stream"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	profiles := profile.NewMemoryStore()
	profiles.Put(profile.Profile{ID: "d1", FullName: "Ana Pereira", VehicleUsage: profile.UsageBoth, VehicleType: "Renault Kangoo", PassengerCapacity: 4, Rating: 4.8})
	profiles.Put(profile.Profile{ID: "d2", FullName: "Luis García", VehicleUsage: profile.UsagePassenger, VehicleType: "Chevrolet Onix", PassengerCapacity: 4, Rating: 4.2})

	hub := stream.NewHub(log)
	index := matching.NewMemoryIndex()
	tripSvc := trip.NewService(trip.NewMemoryStore(profiles), profiles,
		trip.WithEmitter(hub), trip.WithLogger(log), trip.WithPickupIndex(index))
	matchingSvc := matching.NewService(tripSvc, index)
	chatSvc := chat.NewService(chat.NewMemoryStore(), chat.NewMemoryLastRead(), tripSvc, profiles, hub, hub, log)

	return httptransport.NewRouter(httptransport.RouterDeps{
		Trips:    tripSvc,
		Matcher:  matchingSvc,
		Chat:     chatSvc,
		Hub:      hub,
		Profiles: profiles,
		Verifier: nil, // X-User-ID fallback
		Log:      log,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "body: %s", rec.Body.String())
}

func createTrip(t *testing.T, h http.Handler, passenger string) trip.Trip {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/trips", passenger, map[string]any{
		"trip_type":           "passenger",
		"passenger_count":     2,
		"pickup_address":      "Av. 18 de Julio 1234",
		"destination_address": "Bvar. Artigas 456",
		"pickup_coords":       map[string]float64{"lat": -34.9066, "lng": -56.2006},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tr trip.Trip
	decode(t, rec, &tr)
	return tr
}

func submitOffer(t *testing.T, h http.Handler, tripID types.ID, driver string, price float64) trip.Offer {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/offers", tripID), driver, map[string]any{"price": price})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o trip.Offer
	decode(t, rec, &o)
	return o
}

func TestAuthRequired(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/api/trips", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTripValidation(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/api/trips", "p1", map[string]any{
		"trip_type":           "passenger",
		"passenger_count":     0,
		"pickup_address":      "a",
		"destination_address": "b",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTripLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	tr := createTrip(t, h, "p1")
	assert.Equal(t, trip.StatusSearching, tr.Status)

	submitOffer(t, h, tr.ID, "d1", 500)
	winning := submitOffer(t, h, tr.ID, "d2", 450)

	// Sorted listing.
	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/trips/%s/offers?sort=price_asc", tr.ID), "p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Offers []trip.Offer `json:"offers"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Offers, 2)
	assert.Equal(t, 450.0, listing.Offers[0].Price)

	// Accept binds driver and price.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/accept", tr.ID), "p1", map[string]any{"offer_id": winning.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var accepted trip.Trip
	decode(t, rec, &accepted)
	assert.Equal(t, trip.StatusDriverEnRoute, accepted.Status)
	require.NotNil(t, accepted.DriverID)
	assert.Equal(t, types.ID("d2"), *accepted.DriverID)
	require.NotNil(t, accepted.OfferPrice)
	assert.Equal(t, 450.0, *accepted.OfferPrice)

	// Forward transitions with per-role authorization.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/arrive", tr.ID), "d1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/arrive", tr.ID), "d2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/start", tr.ID), "p1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/complete", tr.ID), "d2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Completed trips can be archived per party.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/archive", tr.ID), "p1", map[string]any{"as": "passenger"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAcceptConflictStatuses(t *testing.T) {
	h := newTestRouter(t)

	tr := createTrip(t, h, "p1")
	o := submitOffer(t, h, tr.ID, "d1", 300)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/accept", tr.ID), "p2", map[string]any{"offer_id": o.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/accept", tr.ID), "p1", map[string]any{"offer_id": o.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// Second accept races against a trip no longer searching.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/accept", tr.ID), "p1", map[string]any{"offer_id": o.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Kind string `json:"kind"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "invalid_state", resp.Kind)
}

func TestOfferConflictKinds(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/trips", "p1", map[string]any{
		"trip_type":           "passenger",
		"passenger_count":     6,
		"pickup_address":      "Terminal Tres Cruces",
		"destination_address": "Aeropuerto de Carrasco",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tr trip.Trip
	decode(t, rec, &tr)

	// d1 seats 4; the warning is advisory and overridable.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/offers", tr.ID), "d1", map[string]any{"price": 900})
	require.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Kind string `json:"kind"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "capacity_mismatch", resp.Kind)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/offers", tr.ID), "d1", map[string]any{"price": 900, "override": true})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/offers", tr.ID), "d1", map[string]any{"price": 850, "override": true})
	require.Equal(t, http.StatusConflict, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "duplicate_offer", resp.Kind)
}

func TestNearbyFeed(t *testing.T) {
	h := newTestRouter(t)

	createTrip(t, h, "p1")

	// d2 a few doors down sees the trip.
	rec := doJSON(t, h, http.MethodGet, "/api/trips/nearby?lat=-34.9067&lng=-56.2007", "d2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Trips []matching.NearbyTrip `json:"trips"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Trips, 1)
	assert.Equal(t, "< 50 m", resp.Trips[0].Distance)

	// A driver who already offered no longer sees it.
	submitOffer(t, h, resp.Trips[0].Trip.ID, "d2", 300)
	rec = doJSON(t, h, http.MethodGet, "/api/trips/nearby?lat=-34.9067&lng=-56.2007", "d2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Empty(t, resp.Trips)

	// Unknown drivers are rejected, missing coordinates are a client error.
	rec = doJSON(t, h, http.MethodGet, "/api/trips/nearby?lat=-34.9&lng=-56.2", "ghost", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/api/trips/nearby", "d2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPassengerCancelOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	tr := createTrip(t, h, "p1")
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/cancel", tr.ID), "p1", map[string]any{"as": "passenger"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/trips/%s", tr.ID), "p1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSentOffers(t *testing.T) {
	h := newTestRouter(t)

	tr := createTrip(t, h, "p1")
	submitOffer(t, h, tr.ID, "d1", 300)

	rec := doJSON(t, h, http.MethodGet, "/api/offers/sent", "d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Offers []trip.SentOffer `json:"offers"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, tr.ID, resp.Offers[0].Offer.TripID)
	assert.Equal(t, trip.OfferPending, resp.Offers[0].Offer.Status)
}

func TestChatOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	tr := createTrip(t, h, "p1")
	o := submitOffer(t, h, tr.ID, "d1", 300)
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/accept", tr.ID), "p1", map[string]any{"offer_id": o.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// Only participants can write.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/messages", tr.ID), "stranger", map[string]any{"text": "hola"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/messages", tr.ID), "d1", map[string]any{"text": "saliendo ahora"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg chat.Message
	decode(t, rec, &msg)
	assert.Equal(t, "Ana Pereira", msg.SenderName)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/trips/%s/messages", tr.ID), "p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Messages []chat.Message `json:"messages"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Messages, 1)

	// Unread bookkeeping: the passenger has one unread from the driver.
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/trips/%s/messages/unread", tr.ID), "p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unread struct {
		Unread int `json:"unread"`
	}
	decode(t, rec, &unread)
	assert.Equal(t, 1, unread.Unread)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/messages/read", tr.ID), "p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/trips/%s/messages/unread", tr.ID), "p1", nil)
	decode(t, rec, &unread)
	assert.Equal(t, 0, unread.Unread)

	// Blank messages are rejected.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/trips/%s/messages", tr.ID), "p1", map[string]any{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetricsOpen(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
