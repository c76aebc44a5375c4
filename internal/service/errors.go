package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("bid amount must be a positive integer")
	ErrNoLiveItem           = errors.New("no live item is available for bidding")
	ErrDayConflict          = errors.New("day already has a queued or live item")
	ErrPastDay              = errors.New("day must be in the future")
	ErrInvalidSubmission    = errors.New("submission is missing required fields")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrSubmissionNotPending = errors.New("submission has already been decided")
	ErrBidFailed            = errors.New("bid processing failed")
)

// BidTooLowError reports a rejected bid together with the price the caller
// must beat on retry.
type BidTooLowError struct {
	CurrentBid int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: current price is %d", e.CurrentBid)
}
