package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dailybid/internal/clock"
	"dailybid/internal/config"
	"dailybid/internal/models"
	"dailybid/internal/store"
)

// LedgerService is the single source of truth for item existence and
// status. Its methods (and BidService's bid transaction) are the only
// writers of item status and current_bid.
type LedgerService struct {
	itemStore ItemStore
	cache     Cache
	clk       clock.Clock
	config    *config.Config
	logger    *log.Logger
}

func NewLedgerService(logger *log.Logger, itemStore ItemStore, cache Cache, clk clock.Clock, cfg *config.Config) *LedgerService {
	return &LedgerService{
		itemStore: itemStore,
		cache:     cache,
		clk:       clk,
		config:    cfg,
		logger:    logger,
	}
}

func (s *LedgerService) fallbackDraft() models.ItemDraft {
	return models.ItemDraft{
		Name:        s.config.FallbackItemName,
		Description: s.config.FallbackItemDescription,
		Category:    "fallback",
		ImageURL:    s.config.FallbackItemImageURL,
		StartBid:    s.config.DefaultStartBid,
	}
}

// ItemForDay returns the item open for bidding on day. For the current day
// it self-heals through EnsureLiveItem; for any other day it is a plain
// read that may return nil.
func (s *LedgerService) ItemForDay(ctx context.Context, day time.Time) (*models.Item, error) {
	if day.Equal(s.clk.Today()) {
		return s.EnsureLiveItem(ctx, day)
	}
	return s.itemStore.GetLiveItem(ctx, day)
}

// EnsureLiveItem guarantees day has a live item and returns it, promoting
// a queued item or creating the fallback as needed. Idempotent.
func (s *LedgerService) EnsureLiveItem(ctx context.Context, day time.Time) (*models.Item, error) {
	cached, err := s.cache.GetCachedLiveItem(ctx, day)
	if err != nil {
		s.logger.Printf("Warning: live item cache read failed for %s: %v", day.Format(models.DayFormat), err)
	}
	if cached != nil {
		return cached, nil
	}

	item, err := s.itemStore.EnsureLiveItem(ctx, day, s.fallbackDraft())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure live item for %s: %w", day.Format(models.DayFormat), err)
	}

	if err := s.cache.CacheLiveItem(ctx, item, s.config.LiveItemCacheTTL); err != nil {
		s.logger.Printf("Warning: failed to cache live item %d: %v", item.ID, err)
	}
	return item, nil
}

// Rollover applies the daily transition for newDay: closes every live item
// from earlier days, promotes the queued item for newDay, and falls back to
// the default item when nothing is queued. Safe to call repeatedly.
func (s *LedgerService) Rollover(ctx context.Context, newDay time.Time) (*models.Item, error) {
	item, err := s.itemStore.Rollover(ctx, newDay, s.fallbackDraft())
	if err != nil {
		return nil, fmt.Errorf("rollover for %s failed: %w", newDay.Format(models.DayFormat), err)
	}

	if err := s.cache.InvalidateLiveItem(ctx, newDay); err != nil {
		s.logger.Printf("Warning: failed to invalidate live item cache: %v", err)
	}

	s.logger.Printf("Rollover for %s complete: live item %d (%q) at price %d",
		newDay.Format(models.DayFormat), item.ID, item.Name, item.CurrentBid)
	return item, nil
}

// Enqueue creates a queued item for a future day. A day that already has a
// queued or live item is rejected with ErrDayConflict; no silent overwrite.
func (s *LedgerService) Enqueue(ctx context.Context, draft models.ItemDraft, day time.Time) (*models.Item, error) {
	if !day.After(s.clk.Today()) {
		return nil, ErrPastDay
	}
	if draft.Name == "" {
		return nil, ErrInvalidSubmission
	}
	if draft.StartBid <= 0 {
		draft.StartBid = s.config.DefaultStartBid
	}

	item, err := s.itemStore.InsertQueuedItem(ctx, draft, day)
	if err != nil {
		if errors.Is(err, store.ErrDBDayConflict) {
			return nil, ErrDayConflict
		}
		return nil, fmt.Errorf("failed to enqueue item for %s: %w", day.Format(models.DayFormat), err)
	}
	return item, nil
}

// SubmitProposal records a user-proposed item awaiting admin action.
func (s *LedgerService) SubmitProposal(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	if sub.Name == "" || sub.SubmitterID == "" {
		return nil, ErrInvalidSubmission
	}
	if sub.StartBid <= 0 {
		sub.StartBid = s.config.DefaultStartBid
	}

	created, err := s.itemStore.CreateSubmission(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return created, nil
}

// ApproveSubmission turns a pending submission into a queued item for day
// and marks it approved, atomically. The submission stays pending when the
// day is taken.
func (s *LedgerService) ApproveSubmission(ctx context.Context, id int64, day time.Time) (*models.Item, error) {
	if !day.After(s.clk.Today()) {
		return nil, ErrPastDay
	}

	item, err := s.itemStore.ApproveSubmissionTx(ctx, id, day)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDBSubmissionNotFound):
			return nil, ErrSubmissionNotFound
		case errors.Is(err, store.ErrDBSubmissionNotPending):
			return nil, ErrSubmissionNotPending
		case errors.Is(err, store.ErrDBDayConflict):
			return nil, ErrDayConflict
		}
		return nil, fmt.Errorf("failed to approve submission %d: %w", id, err)
	}
	return item, nil
}

func (s *LedgerService) RejectSubmission(ctx context.Context, id int64) error {
	err := s.itemStore.RejectSubmission(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDBSubmissionNotFound):
			return ErrSubmissionNotFound
		case errors.Is(err, store.ErrDBSubmissionNotPending):
			return ErrSubmissionNotPending
		}
		return fmt.Errorf("failed to reject submission %d: %w", id, err)
	}
	return nil
}
