package models

// SessionCreateRequest starts a session. An empty city searches the default city.
type SessionCreateRequest struct {
	City string `json:"city"`
}

// SessionSearchRequest runs a search on an existing session.
type SessionSearchRequest struct {
	City string `json:"city"`
}

// Session is the current view of a widget session.
type Session struct {
	SessionID string       `json:"sessionId"`
	Status    string       `json:"status"`
	City      string       `json:"city,omitempty"`
	Weather   *Observation `json:"weather,omitempty"`
	IsDay     bool         `json:"isDay"`
	Theme     Theme        `json:"theme"`
	Scene     Scene        `json:"scene"`
	Error     string       `json:"error,omitempty"`
	CreatedAt Timestamp    `json:"createdAt"`
	UpdatedAt Timestamp    `json:"updatedAt"`
}
