package service

import (
	"context"
	"time"

	"dailybid/internal/models"
)

// ItemStore is the persistent ledger the services operate against.
// *store.DBStore implements it; tests substitute an in-memory fake.
type ItemStore interface {
	GetLiveItem(ctx context.Context, day time.Time) (*models.Item, error)
	EnsureLiveItem(ctx context.Context, day time.Time, fallback models.ItemDraft) (*models.Item, error)
	Rollover(ctx context.Context, newDay time.Time, fallback models.ItemDraft) (*models.Item, error)
	InsertQueuedItem(ctx context.Context, draft models.ItemDraft, day time.Time) (*models.Item, error)
	ExecuteBidTransaction(ctx context.Context, day time.Time, userID string, amount int64) (*models.Item, int64, error)
	GetRecentBids(ctx context.Context, limit int) ([]models.ActivityEntry, error)
	CreateSubmission(ctx context.Context, sub *models.Submission) (*models.Submission, error)
	GetSubmissionByID(ctx context.Context, id int64) (*models.Submission, error)
	ApproveSubmissionTx(ctx context.Context, id int64, day time.Time) (*models.Item, error)
	RejectSubmission(ctx context.Context, id int64) error
}

// Cache is the best-effort read cache in front of the ledger. Failures are
// logged by callers and never fail the underlying operation.
// *store.RedisStore implements it.
type Cache interface {
	CacheLiveItem(ctx context.Context, item *models.Item, ttl time.Duration) error
	GetCachedLiveItem(ctx context.Context, day time.Time) (*models.Item, error)
	InvalidateLiveItem(ctx context.Context, day time.Time) error
	PushRecentBid(ctx context.Context, entry models.ActivityEntry) error
	GetRecentBids(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}
