// Package respond writes the JSON envelopes used by every API handler:
// {"data": ...} on success, {"error": "...", "code": "..."} on failure.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
)

type dataEnvelope struct {
	Data interface{} `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON writes a success envelope
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: data})
}

// Error classifies err and writes the error envelope. Non-domain errors are
// logged in full but surfaced only as their classified code.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	de := domain.Classify(err)
	if de.Code == domain.CodeInternal || de.Code == domain.CodeServiceUnavailable {
		log.Error().Err(err).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(de.Status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: de.Message, Code: de.Code})
}
