package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/validation"
)

const (
	maxBodyBytes     = 1 << 20
	maxBulkBodyBytes = 10 << 20
)

// ErrorResponse is the body of every non-2xx response. The underlying cause
// is never included.
type ErrorResponse struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	std := errors.Normalize(err)
	status := errors.HTTPStatus(std.Code)

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", map[string]interface{}{
			"method":  r.Method,
			"path":    r.URL.Path,
			"code":    std.Code,
			"details": std.Details,
		})
	}
	writeJSON(w, status, ErrorResponse{
		Code:     string(std.Code),
		Message:  std.Message,
		Metadata: std.Metadata,
	})
}

// readBody reads at most limit bytes and checks them against schema when one is given.
func readBody(w http.ResponseWriter, r *http.Request, limit int64, schema string) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewValidationError("request body too large", nil)
		}
		return nil, errors.NewValidationError("could not read request body", nil)
	}
	if len(raw) == 0 {
		return nil, errors.NewValidationError("request body is required", nil)
	}
	if !json.Valid(raw) {
		return nil, errors.NewValidationError("request body is not valid JSON", nil)
	}
	if schema == "" {
		return raw, nil
	}

	result, err := validation.Validate(schema, raw)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid {
		return nil, errors.NewValidationError("request body failed validation", result.GetErrorMessages())
	}
	return raw, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, schema string, dst interface{}) error {
	raw, err := readBody(w, r, limit, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewValidationError("request body has the wrong shape", []string{err.Error()})
	}
	return nil
}
