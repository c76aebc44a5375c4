// Package mock provides in-memory implementations of the service store and
// cache interfaces for tests. The store reproduces the semantics of the
// Postgres ledger (one open item per day, serialized bid acceptance)
// behind a single mutex.
package mock

import (
	"context"
	"sync"
	"time"

	"dailybid/internal/models"
	"dailybid/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	nextItemID  int64
	nextSubID   int64
	items       map[int64]*models.Item
	bids        []models.Bid
	submissions map[int64]*models.Submission
}

func NewStore() *Store {
	return &Store{
		items:       make(map[int64]*models.Item),
		submissions: make(map[int64]*models.Submission),
	}
}

func sameDay(a, b time.Time) bool {
	return a.Format(models.DayFormat) == b.Format(models.DayFormat)
}

func copyItem(item *models.Item) *models.Item {
	c := *item
	return &c
}

func (s *Store) liveForDay(day time.Time) *models.Item {
	for _, item := range s.items {
		if item.Status == models.ItemStatusLive && sameDay(item.DayDate, day) {
			return item
		}
	}
	return nil
}

func (s *Store) openForDay(day time.Time) *models.Item {
	for _, item := range s.items {
		if item.Status != models.ItemStatusClosed && sameDay(item.DayDate, day) {
			return item
		}
	}
	return nil
}

func (s *Store) insertItem(draft models.ItemDraft, day time.Time, status string) *models.Item {
	s.nextItemID++
	item := &models.Item{
		ID:          s.nextItemID,
		Name:        draft.Name,
		Description: draft.Description,
		Category:    draft.Category,
		ImageURL:    draft.ImageURL,
		StartBid:    draft.StartBid,
		CurrentBid:  draft.StartBid,
		DayDate:     day,
		Status:      status,
		CreatorID:   draft.CreatorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.items[item.ID] = item
	return item
}

func (s *Store) GetLiveItem(_ context.Context, day time.Time) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item := s.liveForDay(day); item != nil {
		return copyItem(item), nil
	}
	return nil, nil
}

func (s *Store) ensureLiveLocked(day time.Time, fallback models.ItemDraft) (*models.Item, error) {
	for _, item := range s.items {
		if item.Status == models.ItemStatusQueued && sameDay(item.DayDate, day) {
			item.Status = models.ItemStatusLive
			item.UpdatedAt = time.Now()
		}
	}
	if item := s.liveForDay(day); item != nil {
		return copyItem(item), nil
	}
	return copyItem(s.insertItem(fallback, day, models.ItemStatusLive)), nil
}

func (s *Store) EnsureLiveItem(_ context.Context, day time.Time, fallback models.ItemDraft) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLiveLocked(day, fallback)
}

func (s *Store) Rollover(_ context.Context, newDay time.Time, fallback models.ItemDraft) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Status == models.ItemStatusLive && item.DayDate.Format(models.DayFormat) < newDay.Format(models.DayFormat) {
			item.Status = models.ItemStatusClosed
			item.UpdatedAt = time.Now()
		}
	}
	return s.ensureLiveLocked(newDay, fallback)
}

func (s *Store) InsertQueuedItem(_ context.Context, draft models.ItemDraft, day time.Time) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openForDay(day) != nil {
		return nil, store.ErrDBDayConflict
	}
	return copyItem(s.insertItem(draft, day, models.ItemStatusQueued)), nil
}

func (s *Store) ExecuteBidTransaction(_ context.Context, day time.Time, userID string, amount int64) (*models.Item, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.liveForDay(day)
	if item == nil {
		return nil, 0, store.ErrDBNoLiveItem
	}
	if amount <= item.CurrentBid {
		return nil, item.CurrentBid, store.ErrDBBidTooLow
	}

	s.bids = append(s.bids, models.Bid{
		ID:        uuid.New().String(),
		ItemID:    item.ID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now(),
	})
	item.CurrentBid = amount
	item.UpdatedAt = time.Now()
	return copyItem(item), amount, nil
}

func (s *Store) GetRecentBids(_ context.Context, limit int) ([]models.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.ActivityEntry
	for i := len(s.bids) - 1; i >= 0 && len(entries) < limit; i-- {
		bid := s.bids[i]
		item := s.items[bid.ItemID]
		entries = append(entries, models.ActivityEntry{
			BidID:     bid.ID,
			ItemID:    bid.ItemID,
			ItemName:  item.Name,
			ItemDay:   item.DayDate.Format(models.DayFormat),
			UserID:    bid.UserID,
			Amount:    bid.Amount,
			CreatedAt: bid.CreatedAt,
		})
	}
	return entries, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub *models.Submission) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	sub.ID = s.nextSubID
	sub.Status = models.SubmissionStatusPending
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()
	stored := *sub
	s.submissions[sub.ID] = &stored
	return sub, nil
}

func (s *Store) GetSubmissionByID(_ context.Context, id int64) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, store.ErrDBSubmissionNotFound
	}
	c := *sub
	return &c, nil
}

func (s *Store) ApproveSubmissionTx(_ context.Context, id int64, day time.Time) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, store.ErrDBSubmissionNotFound
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, store.ErrDBSubmissionNotPending
	}
	if s.openForDay(day) != nil {
		return nil, store.ErrDBDayConflict
	}

	item := s.insertItem(models.ItemDraft{
		Name:        sub.Name,
		Description: sub.Description,
		Category:    sub.Category,
		ImageURL:    sub.ImageURL,
		StartBid:    sub.StartBid,
		CreatorID:   sub.SubmitterID,
	}, day, models.ItemStatusQueued)

	sub.Status = models.SubmissionStatusApproved
	sub.UpdatedAt = time.Now()
	return copyItem(item), nil
}

func (s *Store) RejectSubmission(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return store.ErrDBSubmissionNotFound
	}
	if sub.Status != models.SubmissionStatusPending {
		return store.ErrDBSubmissionNotPending
	}
	sub.Status = models.SubmissionStatusRejected
	sub.UpdatedAt = time.Now()
	return nil
}

// Bids returns every accepted bid in acceptance order.
func (s *Store) Bids() []models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Bid, len(s.bids))
	copy(out, s.bids)
	return out
}

// Items returns a snapshot of every item keyed by id.
func (s *Store) Items() map[int64]models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]models.Item, len(s.items))
	for id, item := range s.items {
		out[id] = *item
	}
	return out
}

// Cache is an in-memory stand-in for the Redis cache.
type Cache struct {
	mu        sync.Mutex
	liveItems map[string]*models.Item
	recent    []models.ActivityEntry
}

func NewCache() *Cache {
	return &Cache{liveItems: make(map[string]*models.Item)}
}

func (c *Cache) CacheLiveItem(_ context.Context, item *models.Item, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveItems[item.DayDate.Format(models.DayFormat)] = copyItem(item)
	return nil
}

func (c *Cache) GetCachedLiveItem(_ context.Context, day time.Time) (*models.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.liveItems[day.Format(models.DayFormat)]; ok {
		return copyItem(item), nil
	}
	return nil, nil
}

func (c *Cache) InvalidateLiveItem(_ context.Context, day time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.liveItems, day.Format(models.DayFormat))
	return nil
}

func (c *Cache) PushRecentBid(_ context.Context, entry models.ActivityEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = append([]models.ActivityEntry{entry}, c.recent...)
	if len(c.recent) > 100 {
		c.recent = c.recent[:100]
	}
	return nil
}

func (c *Cache) GetRecentBids(_ context.Context, limit int) ([]models.ActivityEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > len(c.recent) {
		limit = len(c.recent)
	}
	out := make([]models.ActivityEntry, limit)
	copy(out, c.recent[:limit])
	return out, nil
}
