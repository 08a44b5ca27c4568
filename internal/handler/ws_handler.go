package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// HandleWebSocket authenticates the handshake, upgrades it and serves the session until
// the client goes away. A caller without a valid credential gets a 401 and never reaches
// the relay.
func HandleWebSocket(relay *chat.Relay, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := relay.NewSession()

		if err := session.Authenticate(jwt.ExtractToken(r)); err != nil {
			logx.Warn("WebSocket connection rejected: Authentication failed.", "session_id", session.ID())
			resp.RespondError(w, r, err)
			return
		}

		identity := session.Identity()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", identity.ID)
			session.Abort()
			return
		}

		logx.Info("WebSocket connection established", "session_id", session.ID(), "user_id", identity.ID)

		if err := session.Serve(r.Context(), conn); err != nil {
			logx.Warn("WebSocket session ended early", "session_id", session.ID(), "user_id", identity.ID, "error", err.Error())
		}
	}
}
