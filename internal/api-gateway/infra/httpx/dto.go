package httpx

import "encoding/json"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest is the payload of update_artist and update_album: the path
// id plus the request body as the change set.
type UpdateRequest struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
