package dto

// SyncRequest is the body of POST /api/v1/sync. Every field is optional:
// no accounts means all configured accounts, and without from/to the last
// Days trading days are requested.
type SyncRequest struct {
	Accounts []string `json:"accounts,omitempty" example:"U1234567"`
	From     string   `json:"from,omitempty" example:"2026-01-12"`
	To       string   `json:"to,omitempty" example:"2026-01-15"`
	Days     int      `json:"days,omitempty" example:"5"`
	Policy   string   `json:"policy,omitempty" example:"prefer-settlement"`
}

// SyncAccountResult is the outcome for one account.
type SyncAccountResult struct {
	AccountID          string   `json:"account_id" example:"U1234567"`
	QueryID            string   `json:"query_id,omitempty" example:"123456"`
	Trades             int      `json:"trades" example:"12"`
	Realtime           int      `json:"realtime" example:"2"`
	Settlement         int      `json:"settlement" example:"10"`
	Upserted           int64    `json:"upserted" example:"12"`
	ValidationFailures []string `json:"validation_failures,omitempty"`
	ElapsedMS          int64    `json:"elapsed_ms" example:"2140"`
	Error              string   `json:"error,omitempty"`
}

// SyncResponse is returned by POST /api/v1/sync.
type SyncResponse struct {
	RunID   string              `json:"run_id" example:"5f1c7f5e-6b1e-4a53-9d55-1f0e4c1b2a77"`
	Range   string              `json:"range,omitempty" example:"2026-01-12..2026-01-15"`
	Failed  int                 `json:"failed" example:"0"`
	Results []SyncAccountResult `json:"results"`
}
