package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"dailybid/internal/clock"
	"dailybid/internal/config"
	"dailybid/internal/models"
	"dailybid/internal/service"
	"dailybid/internal/service/mock"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func testConfig() *config.Config {
	return &config.Config{
		Timezone:                "UTC",
		LiveItemCacheTTL:        30 * time.Second,
		RecentBidsLimit:         20,
		FallbackItemName:        "Mystery Box of the Day",
		FallbackItemDescription: "House item",
		FallbackItemImageURL:    "https://example.com/box.png",
		DefaultStartBid:         100,
	}
}

func day(s string) time.Time {
	d, err := time.ParseInLocation(models.DayFormat, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func newLedger(t *testing.T, today string) (*service.LedgerService, *mock.Store, *mock.Cache) {
	t.Helper()
	st := mock.NewStore()
	cache := mock.NewCache()
	clk := &clock.FixedClock{Instant: day(today).Add(10 * time.Hour)}
	logger := log.New(io.Discard, "", 0)
	return service.NewLedgerService(logger, st, cache, clk, testConfig()), st, cache
}

func TestEnsureLiveItem_CreatesFallbackOnce(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	first, err := ledger.EnsureLiveItem(ctx, day("2024-06-01"))
	assert.NoError(t, err)
	check.Equal(t, models.ItemStatusLive, first.Status)
	check.Equal(t, "Mystery Box of the Day", first.Name)
	check.Equal(t, int64(100), first.CurrentBid)

	second, err := ledger.EnsureLiveItem(ctx, day("2024-06-01"))
	assert.NoError(t, err)
	check.Equal(t, first.ID, second.ID)
}

func TestEnsureLiveItem_PromotesQueuedItem(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	queued, err := ledger.Enqueue(ctx, models.ItemDraft{Name: "Signed vinyl", StartBid: 250}, day("2024-06-02"))
	assert.NoError(t, err)
	check.Equal(t, models.ItemStatusQueued, queued.Status)

	live, err := ledger.EnsureLiveItem(ctx, day("2024-06-02"))
	assert.NoError(t, err)
	check.Equal(t, queued.ID, live.ID)
	check.Equal(t, models.ItemStatusLive, live.Status)
}

func TestRollover_PromotesThenCloses(t *testing.T) {
	ledger, st, _ := newLedger(t, "2024-05-31")
	ctx := context.Background()

	queued, err := ledger.Enqueue(ctx, models.ItemDraft{Name: "Item B", StartBid: 100}, day("2024-06-01"))
	assert.NoError(t, err)

	promoted, err := ledger.Rollover(ctx, day("2024-06-01"))
	assert.NoError(t, err)
	check.Equal(t, queued.ID, promoted.ID)
	check.Equal(t, models.ItemStatusLive, promoted.Status)

	next, err := ledger.Rollover(ctx, day("2024-06-02"))
	assert.NoError(t, err)
	check.True(t, next.ID != queued.ID)
	check.Equal(t, models.ItemStatusLive, next.Status)

	items := st.Items()
	check.Equal(t, models.ItemStatusClosed, items[queued.ID].Status)

	liveCount := 0
	for _, item := range items {
		if item.Status == models.ItemStatusLive {
			liveCount++
		}
	}
	check.Equal(t, 1, liveCount)
}

func TestRollover_Idempotent(t *testing.T) {
	ledger, st, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	first, err := ledger.Rollover(ctx, day("2024-06-01"))
	assert.NoError(t, err)

	second, err := ledger.Rollover(ctx, day("2024-06-01"))
	assert.NoError(t, err)

	check.Equal(t, first.ID, second.ID)
	check.Equal(t, 1, len(st.Items()))
}

func TestEnqueue_RejectsConflictAndPastDays(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	_, err := ledger.Enqueue(ctx, models.ItemDraft{Name: "First", StartBid: 100}, day("2024-06-02"))
	assert.NoError(t, err)

	_, err = ledger.Enqueue(ctx, models.ItemDraft{Name: "Second", StartBid: 100}, day("2024-06-02"))
	check.True(t, errors.Is(err, service.ErrDayConflict))

	_, err = ledger.Enqueue(ctx, models.ItemDraft{Name: "Too late", StartBid: 100}, day("2024-06-01"))
	check.True(t, errors.Is(err, service.ErrPastDay))

	_, err = ledger.Enqueue(ctx, models.ItemDraft{Name: "Way too late", StartBid: 100}, day("2024-05-20"))
	check.True(t, errors.Is(err, service.ErrPastDay))
}

func TestItemForDay_PastDayIsPlainRead(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-02")
	ctx := context.Background()

	// Nothing was ever live on 2024-06-01; a historical read must not
	// fabricate an item for it.
	item, err := ledger.ItemForDay(ctx, day("2024-06-01"))
	assert.NoError(t, err)
	check.Nil(t, item)

	today, err := ledger.ItemForDay(ctx, day("2024-06-02"))
	assert.NoError(t, err)
	check.NotNil(t, today)
	check.Equal(t, models.ItemStatusLive, today.Status)
}

func TestApproveSubmission_Lifecycle(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	sub, err := ledger.SubmitProposal(ctx, &models.Submission{
		Name:        "Vintage camera",
		SubmitterID: "user-7",
	})
	assert.NoError(t, err)
	check.Equal(t, models.SubmissionStatusPending, sub.Status)
	check.Equal(t, int64(100), sub.StartBid)

	item, err := ledger.ApproveSubmission(ctx, sub.ID, day("2024-06-03"))
	assert.NoError(t, err)
	check.Equal(t, models.ItemStatusQueued, item.Status)
	check.Equal(t, "Vintage camera", item.Name)
	check.Equal(t, "user-7", item.CreatorID)

	// Already decided.
	_, err = ledger.ApproveSubmission(ctx, sub.ID, day("2024-06-04"))
	check.True(t, errors.Is(err, service.ErrSubmissionNotPending))

	// A second submission cannot take the same day.
	other, err := ledger.SubmitProposal(ctx, &models.Submission{Name: "Rug", SubmitterID: "user-8"})
	assert.NoError(t, err)
	_, err = ledger.ApproveSubmission(ctx, other.ID, day("2024-06-03"))
	check.True(t, errors.Is(err, service.ErrDayConflict))

	// The losing submission stays pending and can be rejected.
	err = ledger.RejectSubmission(ctx, other.ID)
	assert.NoError(t, err)
	err = ledger.RejectSubmission(ctx, other.ID)
	check.True(t, errors.Is(err, service.ErrSubmissionNotPending))

	err = ledger.RejectSubmission(ctx, 9999)
	check.True(t, errors.Is(err, service.ErrSubmissionNotFound))
}

func TestApproveSubmission_PastDayRejected(t *testing.T) {
	ledger, _, _ := newLedger(t, "2024-06-01")
	ctx := context.Background()

	sub, err := ledger.SubmitProposal(ctx, &models.Submission{Name: "Lamp", SubmitterID: "user-1"})
	assert.NoError(t, err)

	_, err = ledger.ApproveSubmission(ctx, sub.ID, day("2024-06-01"))
	check.True(t, errors.Is(err, service.ErrPastDay))
}
