// Package shared holds the response helpers every HTTP handler uses so
// error bodies stay uniform across the console and network surfaces.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "benefit-gateway/pkg/domain-errors"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteJSON writes v with the given status. Encoding failures are
// swallowed; headers are already gone by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto its HTTP status and a stable
// error body. Unknown errors come out as 500 with a generic message so
// internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	var body errorBody
	body.Error.Code = string(code)
	if code == dErrors.CodeInternal {
		body.Error.Message = "internal error"
	} else {
		body.Error.Message = err.Error()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
