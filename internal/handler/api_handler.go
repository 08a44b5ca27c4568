package handler

import (
	"net/http"
	"strconv"
	"time"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/resp"
)

// HandleHealth reports liveness. The body is not wrapped in the /api envelope.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HandleListMessages returns recent messages oldest first. ?limit defaults to and is capped
// at the configured history limit.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = n
		}

		messages, err := deps.Messages.History(r.Context(), limit)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// HandlePresence returns who is connected right now.
func HandlePresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Relay.Presence())
	}
}
