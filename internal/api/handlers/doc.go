// Package handlers implements the operational HTTP handlers for
// citypulse: probes, manual tick triggers, and the notification read
// endpoints.
package handlers

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status"`
}
