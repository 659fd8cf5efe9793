package chat_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fieldcart/internal/chat"
	"fieldcart/internal/domain"
	"fieldcart/internal/notify"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockFetcher) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func conversationWithMessages(id string, texts ...string) *domain.Conversation {
	conv := &domain.Conversation{ID: id, Name: "Meadow Farm", FarmID: "farm-1", UserID: "u-1"}
	for i, text := range texts {
		conv.Messages = append(conv.Messages, domain.Message{
			ID:     "m" + string(rune('1'+i)),
			Sender: domain.Author{ID: "u-2"},
			Text:   text,
		})
	}
	return conv
}

func TestLoadConversation(t *testing.T) {
	fetcher := new(MockFetcher)
	recorder := notify.NewRecorder()
	store := chat.NewStore(fetcher, recorder, zerolog.Nop())

	t.Run("ReplacesWholeConversation", func(t *testing.T) {
		fetcher.On("GetConversation", mock.Anything, "c1").
			Return(conversationWithMessages("c1", "hello", "how much are eggs?"), nil).Once()

		err := store.LoadConversation(context.Background(), "c1")
		assert.NoError(t, err)
		assert.Equal(t, 2, store.MessageCount("c1"))
		assert.Equal(t, "c1", store.Active().ID)
	})

	t.Run("FailureLeavesStoreUntouched", func(t *testing.T) {
		fetcher.On("GetConversation", mock.Anything, "c1").
			Return(nil, domain.ErrUnavailable).Once()

		err := store.LoadConversation(context.Background(), "c1")
		assert.Error(t, err)
		assert.Equal(t, 2, store.MessageCount("c1"))
		assert.NotEmpty(t, recorder.Errors())
	})
}

func TestLoadConversationList(t *testing.T) {
	fetcher := new(MockFetcher)
	store := chat.NewStore(fetcher, notify.NewRecorder(), zerolog.Nop())

	fetcher.On("ListConversations", mock.Anything).Return([]*domain.Conversation{
		conversationWithMessages("c1", "hi"),
		conversationWithMessages("c2", "fresh kale today"),
	}, nil).Once()
	assert.NoError(t, store.LoadConversationList(context.Background()))
	assert.Len(t, store.List(), 2)

	// A reload totally replaces the list, it does not merge.
	fetcher.On("ListConversations", mock.Anything).Return([]*domain.Conversation{
		conversationWithMessages("c3", "new season prices"),
	}, nil).Once()
	assert.NoError(t, store.LoadConversationList(context.Background()))
	list := store.List()
	assert.Len(t, list, 1)
	assert.Equal(t, "c3", list[0].ID)
}

// Appending N pushed messages grows the sequence by exactly N; nothing is
// dropped and nothing is deduplicated.
func TestAppendMonotonicity(t *testing.T) {
	fetcher := new(MockFetcher)
	store := chat.NewStore(fetcher, notify.NewRecorder(), zerolog.Nop())

	fetcher.On("GetConversation", mock.Anything, "c1").
		Return(conversationWithMessages("c1", "a", "b", "c"), nil).Once()
	assert.NoError(t, store.LoadConversation(context.Background(), "c1"))

	before := store.MessageCount("c1")
	pushed := domain.Message{ID: "m9", Sender: domain.Author{ID: "u-2"}, Text: "one more crate left"}
	store.AppendMessage("c1", pushed)
	assert.Equal(t, before+1, store.MessageCount("c1"))

	conv := store.Conversation("c1")
	assert.Equal(t, pushed, conv.Messages[len(conv.Messages)-1])

	// Same payload again: still appended, count grows again.
	store.AppendMessage("c1", pushed)
	assert.Equal(t, before+2, store.MessageCount("c1"))

	// Push for a conversation that is not loaded is dropped.
	store.AppendMessage("nope", pushed)
	assert.Nil(t, store.Conversation("nope"))
}

func TestReplaceMessageText(t *testing.T) {
	fetcher := new(MockFetcher)
	store := chat.NewStore(fetcher, notify.NewRecorder(), zerolog.Nop())

	fetcher.On("GetConversation", mock.Anything, "c1").
		Return(conversationWithMessages("c1", "hello", "bye"), nil).Once()
	assert.NoError(t, store.LoadConversation(context.Background(), "c1"))

	t.Run("EditsInPlace", func(t *testing.T) {
		assert.True(t, store.ReplaceMessageText("m1", "hello there"))

		conv := store.Conversation("c1")
		assert.Equal(t, "hello there", conv.Messages[0].Text)
		assert.Equal(t, "bye", conv.Messages[1].Text)
		assert.Equal(t, 2, len(conv.Messages))
	})

	t.Run("Idempotent", func(t *testing.T) {
		first := store.Conversation("c1")
		assert.True(t, store.ReplaceMessageText("m1", "hello there"))
		assert.Equal(t, first, store.Conversation("c1"))
	})

	t.Run("UnknownID", func(t *testing.T) {
		assert.False(t, store.ReplaceMessageText("missing", "x"))
	})
}
