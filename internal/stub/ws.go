package stub

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fieldcart/internal/realtime"
)

// MakeWSHandler returns the /ws endpoint. It authenticates via a Bearer
// token (Authorization header or ?token= query for dev convenience), then
// serves the room protocol: a join-room frame points the connection at a
// conversation and is acknowledged with joined-room. Pushes are produced by
// the REST handlers through the hub.
func MakeWSHandler(hub *Hub, tokens *TokenService, log zerolog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		// Dev fixture: any origin may connect.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractWSToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hub.Register(conn)
		defer hub.Unregister(conn)
		log.Debug().Str("user_id", userID).Msg("ws connected")

		for {
			var f realtime.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			switch f.Event {
			case realtime.EventJoinRoom:
				var p struct {
					ChatID string `json:"chatId"`
				}
				if err := json.Unmarshal(f.Data, &p); err != nil || p.ChatID == "" {
					continue
				}
				hub.Join(conn, p.ChatID)
				ack, _ := json.Marshal(p)
				_ = hub.Send(conn, realtime.Frame{Event: realtime.EventJoinedRoom, Data: ack})
			default:
				log.Debug().Str("event", f.Event).Str("user_id", userID).Msg("unknown ws event")
			}
		}
	}
}

func extractWSToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return r.URL.Query().Get("token")
}
