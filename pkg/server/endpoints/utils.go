package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

// maxBodyBytes bounds report bodies; package lists of large hosts stay far below it
const maxBodyBytes = 32 << 20

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// statusFor maps an outcome onto the HTTP status the caller acts on:
// 503 asks the caller to redeliver, 422 to drop the report.
func statusFor(o inventory.Outcome) int {
	switch {
	case o.OK():
		return http.StatusOK
	case o.Reason == inventory.ReasonMalformedInput:
		return http.StatusUnprocessableEntity
	case o.Retryable():
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a single JSON document into v
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", inventory.ErrMalformedInput, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", inventory.ErrMalformedInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after request body", inventory.ErrMalformedInput)
	}
	return nil
}

func respondMalformed(w http.ResponseWriter, err error) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"reason": inventory.ReasonMalformedInput,
		"error":  err.Error(),
	})
}
