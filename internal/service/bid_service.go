package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dailybid/internal/clock"
	"dailybid/internal/config"
	"dailybid/internal/models"
	"dailybid/internal/store"
)

// BidService accepts bids against today's live item. Acceptance is
// serialized per item by the store's bid transaction; the accepted price
// sequence for one item is strictly increasing.
type BidService struct {
	itemStore ItemStore
	cache     Cache
	ledger    *LedgerService
	clk       clock.Clock
	config    *config.Config
	logger    *log.Logger
}

func NewBidService(logger *log.Logger, itemStore ItemStore, cache Cache, ledger *LedgerService, clk clock.Clock, cfg *config.Config) *BidService {
	return &BidService{
		itemStore: itemStore,
		cache:     cache,
		ledger:    ledger,
		clk:       clk,
		config:    cfg,
		logger:    logger,
	}
}

// PlaceBid validates and records a bid by userID on today's live item and
// returns the item at its new price. The bid row and the price raise
// commit as one transaction; a losing concurrent bid re-observes the
// raised price and fails with BidTooLowError carrying it.
func (s *BidService) PlaceBid(ctx context.Context, userID string, amount int64) (*models.Item, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	day := s.clk.Today()

	// Self-healing: a missing live item (seeding never ran, service
	// restarted across a day boundary) must not fail a legitimate bid.
	if _, err := s.ledger.EnsureLiveItem(ctx, day); err != nil {
		return nil, fmt.Errorf("failed to ensure live item before bid: %w", err)
	}

	item, currentBid, err := s.itemStore.ExecuteBidTransaction(ctx, day, userID, amount)
	if err != nil {
		if errors.Is(err, store.ErrDBBidTooLow) {
			return nil, &BidTooLowError{CurrentBid: currentBid}
		}
		if errors.Is(err, store.ErrDBNoLiveItem) {
			// Unreachable after EnsureLiveItem; reaching it signals a
			// store fault.
			s.logger.Printf("Error: no live item for %s despite ensure", day.Format(models.DayFormat))
			return nil, ErrNoLiveItem
		}
		s.logger.Printf("Error during bid transaction for user %s: %v", userID, err)
		return nil, ErrBidFailed
	}

	if err := s.cache.CacheLiveItem(ctx, item, s.config.LiveItemCacheTTL); err != nil {
		s.logger.Printf("Warning: failed to refresh live item cache after bid: %v", err)
	}
	entry := models.ActivityEntry{
		ItemID:    item.ID,
		ItemName:  item.Name,
		ItemDay:   item.DayDate.Format(models.DayFormat),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.clk.Now(),
	}
	if err := s.cache.PushRecentBid(ctx, entry); err != nil {
		s.logger.Printf("Warning: failed to push bid to activity cache: %v", err)
	}

	return item, nil
}

// RecentActivity returns the most recent accepted bids, newest first,
// joined with item display data. Served from the cache when warm, from the
// database otherwise.
func (s *BidService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = s.config.RecentBidsLimit
	}
	if limit > 100 {
		limit = 100
	}

	cached, err := s.cache.GetRecentBids(ctx, limit)
	if err != nil {
		s.logger.Printf("Warning: recent activity cache read failed: %v", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	entries, err := s.itemStore.GetRecentBids(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	return entries, nil
}
