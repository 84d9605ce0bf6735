// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stokado/internal/core/id"
)

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates an ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// optionalID renders a possibly-nil reference as a string pointer,
// hiding the zero UUID used for absent references in storage.
func optionalID(v id.ID) *string {
	if id.IsNil(v) {
		return nil
	}
	s := v.String()
	return &s
}
