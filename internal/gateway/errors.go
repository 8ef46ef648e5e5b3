package gateway

import (
	"encoding/json"
	"net/http"

	"sentineld/pkg/types"
)

// writeJSONError writes a consistent JSON error payload. Admission denials
// and upstream failures carry distinct Error values so clients can tell
// "denied" from "backend down".
func writeJSONError(w http.ResponseWriter, status int, errCode, reason, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{
		Error:  errCode,
		Reason: reason,
		State:  state,
		Code:   status,
	})
}
