package models

import "time"

// FetchStatus is the outcome of one account sync.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// FetchLog records one statement retrieval and reconciliation run for an account.
type FetchLog struct {
	RunID     string
	AccountID string
	QueryID   string
	FromDate  *time.Time
	ToDate    *time.Time
	Trades    int
	Status    FetchStatus
	Error     string
	FetchedAt time.Time
}
