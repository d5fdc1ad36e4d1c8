package types

import (
	"time"

	"github.com/urmzd/hbconsole/pkg/accessory"
)

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Bridge    string    `json:"bridge"`
	Timestamp time.Time `json:"timestamp"`
}

// ListAccessoriesResponse is returned from GET /accessories
type ListAccessoriesResponse struct {
	Accessories []accessory.Service `json:"accessories"`
	Count       int                 `json:"count"`
}

// RestartResponse is returned from PUT /server/restart
type RestartResponse struct {
	OK      bool   `json:"ok"`
	Command string `json:"command,omitempty"`
}

// ResetResponse is returned from PUT /server/reset
type ResetResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

// PairingResponse is returned from GET /server/pairing
type PairingResponse struct {
	SetupCode string `json:"setupCode"`
	Pin       string `json:"pin"`
	Username  string `json:"username"`
}
