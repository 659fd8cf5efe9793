package stub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldcart/internal/domain"
	"fieldcart/internal/realtime"
	"fieldcart/internal/stub/sqlite"
)

type ctxKey int

const userIDKey ctxKey = 0

// writeEnvelope sends the backend's `{success, data}` response shape.
func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": true}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AuthMiddleware resolves the bearer token to a user id and stores it on the
// request context.
func AuthMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractWSToken(r)
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := tokens.Parse(tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func currentUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func handleLogin(users *sqlite.UserRepo, tokens *TokenService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		account, err := users.GetByUsername(r.Context(), req.Username)
		if err != nil || !CheckPassword(account.HashedPassword, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		token, err := tokens.CreateForUser(account.ID)
		if err != nil {
			log.Error().Err(err).Msg("create token")
			writeError(w, http.StatusInternalServerError, "failed to create token")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"token": token})
	}
}

func handleListConversations(convs *sqlite.ConversationRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := convs.ListForUser(r.Context(), currentUserID(r))
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		if list == nil {
			list = []*domain.Conversation{}
		}
		writeEnvelope(w, http.StatusOK, list)
	}
}

func handleGetConversation(convs *sqlite.ConversationRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := convs.GetByID(r.Context(), chi.URLParam(r, "chatID"))
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeEnvelope(w, http.StatusOK, conv)
	}
}

// handleSendMessage creates the message and pushes the authoritative copy to
// the conversation's room. The REST response carries no message body; the
// push channel is the only way the new message reaches clients.
func handleSendMessage(convs *sqlite.ConversationRepo, msgs *sqlite.MessageRepo, hub *Hub, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID  string `json:"chatId"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ChatID == "" || req.Message == "" {
			writeError(w, http.StatusBadRequest, "chatId and message are required")
			return
		}
		if _, err := convs.GetByID(r.Context(), req.ChatID); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		msg, err := msgs.Create(r.Context(), req.ChatID, currentUserID(r), req.Message)
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		if err := convs.Touch(r.Context(), req.ChatID); err != nil {
			log.Warn().Err(err).Msg("touch conversation")
		}

		data, _ := json.Marshal(map[string]any{"chatId": req.ChatID, "message": msg})
		hub.BroadcastRoom(req.ChatID, realtime.Frame{Event: realtime.EventNewMessage, Data: data})

		writeEnvelope(w, http.StatusCreated, nil)
	}
}

// handleEditMessage overwrites a message's text. Only the author may edit.
func handleEditMessage(msgs *sqlite.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID    string `json:"chatId"`
			MessageID string `json:"messageId"`
			NewText   string `json:"newText"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.MessageID == "" || req.NewText == "" {
			writeError(w, http.StatusBadRequest, "messageId and newText are required")
			return
		}
		msg, convID, err := msgs.GetByID(r.Context(), req.MessageID)
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		if convID != req.ChatID {
			writeError(w, http.StatusNotFound, "message not in conversation")
			return
		}
		if msg.Sender.ID != currentUserID(r) {
			writeError(w, http.StatusForbidden, "only the author may edit a message")
			return
		}
		if err := msgs.UpdateText(r.Context(), req.MessageID, req.NewText); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeEnvelope(w, http.StatusOK, nil)
	}
}

func handleGetCart(carts *sqlite.CartRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := carts.GetCart(r.Context(), currentUserID(r))
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeEnvelope(w, http.StatusOK, cart)
	}
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func handleAddCartItem(carts *sqlite.CartRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		if err := carts.AddItem(r.Context(), currentUserID(r), chi.URLParam(r, "productID"), req.Quantity); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		respondWithCart(w, r, carts)
	}
}

func handleUpdateCartItem(carts *sqlite.CartRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		if err := carts.UpdateQuantity(r.Context(), currentUserID(r), chi.URLParam(r, "productID"), req.Quantity); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		respondWithCart(w, r, carts)
	}
}

func handleRemoveCartItem(carts *sqlite.CartRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := carts.RemoveItem(r.Context(), currentUserID(r), chi.URLParam(r, "productID")); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		respondWithCart(w, r, carts)
	}
}

// respondWithCart returns the post-mutation cart so responses stay
// cart-shaped, as the client expects.
func respondWithCart(w http.ResponseWriter, r *http.Request, carts *sqlite.CartRepo) {
	cart, err := carts.GetCart(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeEnvelope(w, http.StatusOK, cart)
}

func handleListProducts(carts *sqlite.CartRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := carts.ListProducts(r.Context())
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		if products == nil {
			products = []*domain.Product{}
		}
		writeEnvelope(w, http.StatusOK, products)
	}
}

// handleCreateConversation lets the dev fixture open a thread with a farm.
func handleCreateConversation(convs *sqlite.ConversationRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string `json:"name"`
			FarmID string `json:"farmId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Name == "" || req.FarmID == "" {
			writeError(w, http.StatusBadRequest, "name and farmId are required")
			return
		}
		conv := &domain.Conversation{
			ID:     uuid.NewString(),
			Name:   req.Name,
			FarmID: req.FarmID,
			UserID: currentUserID(r),
		}
		if err := convs.Create(r.Context(), conv); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeEnvelope(w, http.StatusCreated, conv)
	}
}
