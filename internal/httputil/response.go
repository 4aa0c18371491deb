package httputil

import (
	"encoding/json"
	"net/http"

	"school-service/internal/apperr"
)

// Envelope is the response shape used by every endpoint: a status field
// mirroring the HTTP status code plus a human-readable message. Extra
// payload keys (data, school, user, ...) are added per response.
type Envelope map[string]interface{}

// RespondWithJSON writes payload with the given status code.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithMessage writes the bare {status, message} envelope.
func RespondWithMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{"status": code, "message": message})
}

// RespondWithData writes {status, message} plus one payload key.
func RespondWithData(w http.ResponseWriter, code int, message, key string, value interface{}) {
	RespondWithJSON(w, code, Envelope{"status": code, "message": message, key: value})
}

// RespondWithError maps err to its HTTP status and writes the envelope.
// Internal error detail never reaches the body.
func RespondWithError(w http.ResponseWriter, err error) {
	code := apperr.HTTPStatus(err)
	RespondWithMessage(w, code, apperr.MessageOf(err))
}
