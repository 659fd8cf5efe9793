// Package chat holds the client-side view of truth for conversations. State
// lives only in memory for the lifetime of the owning view; nothing is
// persisted.
package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"fieldcart/internal/domain"
	"fieldcart/internal/metrics"
	"fieldcart/internal/notify"
)

// Fetcher is the REST seam the store loads from.
type Fetcher interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context) ([]*domain.Conversation, error)
}

// Store maintains one (detail view) or many (inbox view) conversations with
// their ordered message sequences. Loads replace server state wholesale;
// push events append; edits replace text in place. Messages are never
// removed.
type Store struct {
	mu       sync.RWMutex
	fetcher  Fetcher
	notifier notify.Notifier
	log      zerolog.Logger

	convs    map[string]*domain.Conversation
	order    []string
	activeID string
}

func NewStore(fetcher Fetcher, notifier notify.Notifier, log zerolog.Logger) *Store {
	return &Store{
		fetcher:  fetcher,
		notifier: notifier,
		log:      log.With().Str("component", "chat").Logger(),
		convs:    make(map[string]*domain.Conversation),
	}
}

// LoadConversation replaces the stored conversation with the server's copy,
// messages included. On failure the prior contents are left untouched and a
// user-visible error is raised.
func (s *Store) LoadConversation(ctx context.Context, id string) error {
	conv, err := s.fetcher.GetConversation(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("chat_id", id).Msg("load conversation failed")
		s.notifier.Error("error loading conversation")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conv.ID]; !ok {
		s.order = append(s.order, conv.ID)
	}
	s.convs[conv.ID] = conv
	s.activeID = conv.ID
	return nil
}

// LoadConversationList replaces the whole inbox with the fetched summaries.
func (s *Store) LoadConversationList(ctx context.Context) error {
	convs, err := s.fetcher.ListConversations(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("load conversation list failed")
		s.notifier.Error("error loading conversations")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = make(map[string]*domain.Conversation, len(convs))
	s.order = s.order[:0]
	for _, conv := range convs {
		s.convs[conv.ID] = conv
		s.order = append(s.order, conv.ID)
	}
	return nil
}

// AppendMessage appends a pushed message to its conversation. Appends are
// not deduplicated by id; delivery order is trusted as-is. A push for a
// conversation that is not loaded is dropped.
func (s *Store) AppendMessage(conversationID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		s.log.Debug().Str("chat_id", conversationID).Msg("push for unloaded conversation dropped")
		return
	}
	conv.Messages = append(conv.Messages, msg)
	metrics.MessagesAppended.Inc()
}

// ReplaceMessageText overwrites a message's text in place within the active
// conversation after the server confirmed an edit. Position and every other
// field are preserved. Calling it twice with the same arguments is
// equivalent to calling it once.
func (s *Store) ReplaceMessageText(messageID, newText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[s.activeID]
	if !ok {
		return false
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			conv.Messages[i].Text = newText
			return true
		}
	}
	return false
}

// SetActive marks the conversation the detail view is showing. Pushes for
// other loaded conversations still append to their own sequences.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// Active returns a snapshot copy of the active conversation, or nil.
func (s *Store) Active() *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.convs[s.activeID])
}

// Conversation returns a snapshot copy of one conversation, or nil.
func (s *Store) Conversation(id string) *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.convs[id])
}

// List returns snapshot copies of all conversations in load order.
func (s *Store) List() []*domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Conversation, 0, len(s.order))
	for _, id := range s.order {
		if conv, ok := s.convs[id]; ok {
			out = append(out, snapshot(conv))
		}
	}
	return out
}

// MessageCount reports the length of a conversation's message sequence.
func (s *Store) MessageCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conv, ok := s.convs[id]; ok {
		return len(conv.Messages)
	}
	return 0
}

// snapshot copies a conversation so callers can read it without holding the
// store lock against the realtime goroutine.
func snapshot(conv *domain.Conversation) *domain.Conversation {
	if conv == nil {
		return nil
	}
	cp := *conv
	cp.Messages = append([]domain.Message(nil), conv.Messages...)
	return &cp
}
