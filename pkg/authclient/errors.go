package authclient

import (
	"encoding/json"
	"strings"
)

// genericErrorMessage is surfaced when an error body matches neither shape
const genericErrorMessage = "Request failed. Please try again."

// APIError is a structured error from the auth backend. Message is extracted
// from the response body at construction time; callers surface it directly.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// The backend emits two error shapes. Shape A (validation):
//
//	{"detail": "..."} or {"detail": [{"msg": "...", "loc": [...]}]}
//
// Shape B (structured):
//
//	{"error": {"message": "...", "details": [{"field": "...", "message": "..."}]}}
//
// When both are present shape B wins; within shape B a non-empty details
// array wins over message, joined with ". ".
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// NewAPIError parses a response body into an APIError with a human-readable
// message, falling back to a generic message for unrecognized bodies.
func NewAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return genericErrorMessage
	}

	if parsed.Error != nil {
		if len(parsed.Error.Details) > 0 {
			messages := make([]string, 0, len(parsed.Error.Details))
			for _, d := range parsed.Error.Details {
				if d.Message != "" {
					messages = append(messages, d.Message)
				}
			}
			if len(messages) > 0 {
				return strings.Join(messages, ". ")
			}
		}
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}

	if msg := parseDetail(parsed.Detail); msg != "" {
		return msg
	}
	return genericErrorMessage
}

func parseDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}

	var items []struct {
		Msg string   `json:"msg"`
		Loc []string `json:"loc"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		messages := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				messages = append(messages, item.Msg)
			}
		}
		return strings.Join(messages, ". ")
	}
	return ""
}
