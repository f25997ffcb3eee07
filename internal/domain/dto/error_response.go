package dto

import "time"

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Message      string    `json:"error" example:"invalid request"`
	ErrorDetails string    `json:"details,omitempty" example:"from must be YYYY-MM-DD"`
	Timestamp    time.Time `json:"timestamp" example:"2026-01-15T10:30:00Z"`
}

func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse; err, when non-nil, becomes the details.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Message: message, Timestamp: time.Now().UTC()}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
