package models

import (
	"encoding/json"
	"errors"
)

// ErrMalformedResponse is returned when an upload response does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed upload response")

// SubmissionResponse is the JSON answer of the upload endpoint.
type SubmissionResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// UploadSucceeded builds a success response that points the client at redirect.
func UploadSucceeded(redirect string) *SubmissionResponse {
	return &SubmissionResponse{Success: true, Redirect: redirect}
}

// UploadFailed builds a failure response carrying a user-facing message.
func UploadFailed(message string) *SubmissionResponse {
	return &SubmissionResponse{Success: false, Error: message}
}

// ParseSubmissionResponse decodes and validates an upload response body.
// "success" must be a boolean, "redirect" must be a non-empty string when success is true
// and "error", when present, must be a string.
func ParseSubmissionResponse(body []byte) (*SubmissionResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}

	successRaw, ok := raw["success"]
	if !ok || string(successRaw) == "null" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("missing success"))
	}

	var resp SubmissionResponse
	if err := json.Unmarshal(successRaw, &resp.Success); err != nil {
		return nil, errors.Join(ErrMalformedResponse, errors.New("success is not a boolean"))
	}

	if errRaw, ok := raw["error"]; ok && string(errRaw) != "null" {
		if err := json.Unmarshal(errRaw, &resp.Error); err != nil {
			return nil, errors.Join(ErrMalformedResponse, errors.New("error is not a string"))
		}
	}

	if redirectRaw, ok := raw["redirect"]; ok && string(redirectRaw) != "null" {
		if err := json.Unmarshal(redirectRaw, &resp.Redirect); err != nil {
			return nil, errors.Join(ErrMalformedResponse, errors.New("redirect is not a string"))
		}
	}

	if resp.Success && resp.Redirect == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("missing redirect"))
	}

	return &resp, nil
}
