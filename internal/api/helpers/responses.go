package helpers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// RespondErr renders an error through the gatewayerr.Kind->status mapping
// as {"error":"<Kind>","message":"<string>"}. Errors that are not a
// *gatewayerr.Error are reported as Internal without leaking detail.
func RespondErr(w http.ResponseWriter, err error) {
	if ge, ok := gatewayerr.As(err); ok {
		RespondJSON(w, ge.Status(), map[string]string{"error": string(ge.Kind), "message": ge.Message})
		return
	}
	slog.Error("unhandled_error", "error", err)
	RespondJSON(w, http.StatusInternalServerError, map[string]string{"error": string(gatewayerr.Internal), "message": "internal error"})
}
