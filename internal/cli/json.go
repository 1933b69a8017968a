package cli

import (
	"encoding/json"
	goerrors "errors"
	"io"

	"github.com/rileyhilliard/portctl/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine
// parsing. All --json output uses it.
type JSONEnvelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *JSONError `json:"error,omitempty"`
}

// JSONError is the machine-readable form of a failure.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ErrCodeUnknown marks errors that carry no structured code.
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data any) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts err into an error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON maps an error to its JSON form, keeping the structured code
// when there is one.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}
	var pcErr *errors.Error
	if goerrors.As(err, &pcErr) {
		return &JSONError{
			Code:       pcErr.Code,
			Message:    pcErr.Message,
			Suggestion: pcErr.Suggestion,
		}
	}
	return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
}
