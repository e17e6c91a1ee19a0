package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

// errBodyTooLarge marks a request body over the configured limit.
var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, errBodyTooLarge
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// decodeRequest parses body, checks it with check, then decodes it into dst.
// Failures come back as InvalidInput errors carrying expected.
func decodeRequest(body []byte, check func(any) error, expected any, dst any) error {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return invalidInput(fmt.Sprintf("Request body is not valid JSON: %v", err), expected, err)
	}
	if err := check(raw); err != nil {
		return invalidInput(err.Error(), expected, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return invalidInput(err.Error(), expected, err)
	}
	return nil
}

func invalidInput(message string, expected any, err error) *pipeline.Error {
	return &pipeline.Error{
		Kind:           pipeline.KindInvalidInput,
		Message:        message,
		Hint:           "Check the request against the tool's input schema",
		ExpectedFormat: expected,
		Err:            err,
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, v, json.Deterministic(true))
}

func writeErrorBody(w http.ResponseWriter, status int, body types.ErrorBody) {
	writeJSON(w, status, body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidInput, pipeline.KindTooManyFiles:
		return http.StatusUnprocessableEntity
	case pipeline.KindForbiddenPath:
		return http.StatusForbidden
	case pipeline.KindFileNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err as the shared error envelope.
func writeError(w http.ResponseWriter, err error) {
	title, message, hint, expected := pipeline.Describe(err)
	writeErrorBody(w, statusFor(pipeline.KindOf(err)), types.ErrorBody{
		Error:          title,
		Message:        message,
		Hint:           hint,
		ExpectedFormat: expected,
	})
}
