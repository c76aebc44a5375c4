package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dailybid/internal/clock"
	"dailybid/internal/config"
	"dailybid/internal/handler"
	"dailybid/internal/models"
	"dailybid/internal/service"
	"dailybid/internal/service/mock"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

const testAdminKey = "test-admin-key"

func day(s string) time.Time {
	d, err := time.ParseInLocation(models.DayFormat, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestServer(t *testing.T, today string) (*httptest.Server, *mock.Store) {
	t.Helper()

	st := mock.NewStore()
	cache := mock.NewCache()
	clk := &clock.FixedClock{Instant: day(today).Add(12 * time.Hour)}
	logger := log.New(io.Discard, "", 0)
	cfg := &config.Config{
		Timezone:                "UTC",
		LiveItemCacheTTL:        30 * time.Second,
		RecentBidsLimit:         20,
		FallbackItemName:        "Mystery Box of the Day",
		FallbackItemDescription: "House item",
		FallbackItemImageURL:    "https://example.com/box.png",
		DefaultStartBid:         100,
	}

	ledger := service.NewLedgerService(logger, st, cache, clk, cfg)
	bids := service.NewBidService(logger, st, cache, ledger, clk, cfg)
	router := handler.NewRouter(logger, ledger, bids, clk, testAdminKey)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	resp.Body.Close()
	return resp, respBody
}

func userHeaders(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": testAdminKey}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "2024-06-01")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/health", nil, nil)
	check.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlaceBid_RequiresIdentity(t *testing.T) {
	srv, _ := newTestServer(t, "2024-06-01")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bid", map[string]any{"amount": 150}, nil)
	check.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlaceBid_Flow(t *testing.T) {
	srv, _ := newTestServer(t, "2024-06-01")
	bidURL := srv.URL + "/api/v1/bid"

	resp, body := doJSON(t, http.MethodPost, bidURL, map[string]any{"amount": 150}, userHeaders("user1"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var accepted handler.BidResponsePayload
	assert.NoError(t, json.Unmarshal(body, &accepted))
	check.Equal(t, int64(150), accepted.NewCurrentBid)
	check.True(t, accepted.ItemID > 0)

	// Too low after the first bid; the rejection reports the price to beat.
	resp, body = doJSON(t, http.MethodPost, bidURL, map[string]any{"amount": 120}, userHeaders("user2"))
	check.Equal(t, http.StatusConflict, resp.StatusCode)
	var rejected handler.BidResponsePayload
	assert.NoError(t, json.Unmarshal(body, &rejected))
	check.Equal(t, int64(150), rejected.CurrentBid)

	resp, _ = doJSON(t, http.MethodPost, bidURL, map[string]any{"amount": -5}, userHeaders("user3"))
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, bidURL, map[string]any{"amount": 0}, userHeaders("user3"))
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTodayItem(t *testing.T) {
	srv, _ := newTestServer(t, "2024-06-01")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/item/today", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var item models.Item
	assert.NoError(t, json.Unmarshal(body, &item))
	check.Equal(t, models.ItemStatusLive, item.Status)
	check.Equal(t, "Mystery Box of the Day", item.Name)

	// Same day again returns the same item, not a second one.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/item/today", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var again models.Item
	assert.NoError(t, json.Unmarshal(body, &again))
	check.Equal(t, item.ID, again.ID)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/item/today?day=not-a-day", nil, nil)
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A day nothing was ever live on yields 404 rather than a fabricated item.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/item/today?day=2024-05-30", nil, nil)
	check.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivityFeed(t *testing.T) {
	srv, _ := newTestServer(t, "2024-06-01")

	doJSON(t, http.MethodPost, srv.URL+"/api/v1/bid", map[string]any{"amount": 150}, userHeaders("user1"))
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/bid", map[string]any{"amount": 200}, userHeaders("user2"))

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/activity?limit=10", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.ActivityEntry
	assert.NoError(t, json.Unmarshal(body, &entries))
	assert.Equal(t, 2, len(entries))
	check.Equal(t, int64(200), entries[0].Amount)
	check.Equal(t, int64(150), entries[1].Amount)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/activity?limit=bogus", nil, nil)
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionAndApproval(t *testing.T) {
	srv, st := newTestServer(t, "2024-06-01")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/submissions",
		map[string]any{"name": "Vintage camera"}, nil)
	check.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/submissions",
		map[string]any{"name": "Vintage camera", "start_bid": 250}, userHeaders("user7"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var sub models.Submission
	assert.NoError(t, json.Unmarshal(body, &sub))
	check.Equal(t, models.SubmissionStatusPending, sub.Status)

	approveURL := fmt.Sprintf("%s/admin/submissions/%d/approve", srv.URL, sub.ID)

	resp, _ = doJSON(t, http.MethodPost, approveURL, map[string]any{"day": "2024-06-03"}, nil)
	check.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, approveURL, map[string]any{"day": "2024-06-03"}, adminHeaders())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var item models.Item
	assert.NoError(t, json.Unmarshal(body, &item))
	check.Equal(t, models.ItemStatusQueued, item.Status)
	check.Equal(t, "Vintage camera", item.Name)
	check.Equal(t, int64(250), item.StartBid)

	// Replay: the submission is no longer pending.
	resp, _ = doJSON(t, http.MethodPost, approveURL, map[string]any{"day": "2024-06-04"}, adminHeaders())
	check.Equal(t, http.StatusConflict, resp.StatusCode)

	// Past day target is a client error.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/submissions",
		map[string]any{"name": "Rug"}, userHeaders("user8"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var rug models.Submission
	assert.NoError(t, json.Unmarshal(body, &rug))

	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/admin/submissions/%d/approve", srv.URL, rug.ID),
		map[string]any{"day": "2024-05-01"}, adminHeaders())
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Taking an already-queued day is a conflict; the submission survives.
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/admin/submissions/%d/approve", srv.URL, rug.ID),
		map[string]any{"day": "2024-06-03"}, adminHeaders())
	check.Equal(t, http.StatusConflict, resp.StatusCode)

	got, err := st.GetSubmissionByID(nil, rug.ID)
	assert.NoError(t, err)
	check.Equal(t, models.SubmissionStatusPending, got.Status)
}

func TestAdminRollover(t *testing.T) {
	srv, st := newTestServer(t, "2024-06-02")

	// Yesterday's live item exists before the transition.
	_, err := st.EnsureLiveItem(nil, day("2024-06-01"), models.ItemDraft{Name: "Yesterday", StartBid: 100})
	assert.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/admin/rollover", map[string]any{}, nil)
	check.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/admin/rollover", map[string]any{}, adminHeaders())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var item models.Item
	assert.NoError(t, json.Unmarshal(body, &item))
	check.Equal(t, models.ItemStatusLive, item.Status)
	check.Equal(t, "2024-06-02", item.DayDate.Format(models.DayFormat))

	// Replaying the trigger is harmless and lands on the same item.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/admin/rollover", map[string]any{}, adminHeaders())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var replay models.Item
	assert.NoError(t, json.Unmarshal(body, &replay))
	check.Equal(t, item.ID, replay.ID)

	// Yesterday's item is closed after the transition.
	for _, it := range st.Items() {
		if it.DayDate.Format(models.DayFormat) == "2024-06-01" {
			check.Equal(t, models.ItemStatusClosed, it.Status)
		}
	}
}
