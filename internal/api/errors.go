package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// toolFailure is the JSON body every failed tool call carries. Tool errors
// are payload-level: the JSON-RPC envelope still reports success.
type toolFailure struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// writeFailure emits the tool-style failure body over REST, used where the
// client is expected to re-parse the payload rather than the HTTP error shape.
func writeFailure(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(toolFailure{Success: false, Error: msg, Timestamp: time.Now().UTC()})
}

func toolFailureJSON(msg string) string {
	b, err := json.Marshal(toolFailure{Success: false, Error: msg, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, msg)
	}
	return string(b)
}
