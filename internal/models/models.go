package models

import "time"

const (
	ItemStatusQueued = "queued"
	ItemStatusLive   = "live"
	ItemStatusClosed = "closed"
)

const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// DayFormat is the wire and log format for auction days.
const DayFormat = "2006-01-02"

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	StartBid    int64     `json:"start_bid"`
	CurrentBid  int64     `json:"current_bid"`
	DayDate     time.Time `json:"day_date"`
	Status      string    `json:"status"`
	CreatorID   string    `json:"creator_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemDraft carries the caller-supplied fields of a new item. Everything
// else (status, day, bid bookkeeping) is set by the ledger.
type ItemDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	StartBid    int64  `json:"start_bid"`
	CreatorID   string `json:"creator_id,omitempty"`
}

type Bid struct {
	ID        string    `json:"id"`
	ItemID    int64     `json:"item_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type Submission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	StartBid    int64     `json:"start_bid"`
	SubmitterID string    `json:"submitter_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActivityEntry is one row of the recent-activity feed: a committed bid
// joined with the display data of the item it was placed on.
type ActivityEntry struct {
	BidID     string    `json:"bid_id"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name"`
	ItemDay   string    `json:"item_day"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
