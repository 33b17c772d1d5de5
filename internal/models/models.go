// package models defines the data model for the series tracker client
package models

// Validator is implemented by models whose fields must satisfy invariants before use.
type Validator interface {
	Validate() error // Validate checks the model's invariants and returns an error if any is violated
}

// APIResult is the envelope returned by mutation endpoints.
type APIResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
