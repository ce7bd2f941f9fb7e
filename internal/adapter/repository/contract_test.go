package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

// storeFixture is one backend under test plus three existing user ids.
type storeFixture struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	userA         int64
	userB         int64
	userC         int64
}

func runConversationContract(t *testing.T, setup func(t *testing.T) storeFixture) {
	t.Run("create rejects malformed pairs", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		_, err := f.conversations.Create(ctx, f.userA, f.userA)
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

		_, err = f.conversations.Create(ctx, 0, f.userB)
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

		_, err = f.conversations.Create(ctx, f.userA, -3)
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	})

	t.Run("create initializes read state", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userB, f.userA)
		require.NoError(t, err)
		assert.Equal(t, 0, conversation.UnseenCount)
		assert.True(t, conversation.HasParticipant(f.userA))
		assert.True(t, conversation.HasParticipant(f.userB))
		for _, p := range conversation.Participants {
			assert.Nil(t, p.LastReadMessageID)
		}
	})

	t.Run("find by pair is symmetric", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		missing, err := f.conversations.FindByPair(ctx, f.userA, f.userB)
		require.NoError(t, err)
		assert.Nil(t, missing)

		created, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)

		forward, err := f.conversations.FindByPair(ctx, f.userA, f.userB)
		require.NoError(t, err)
		backward, err := f.conversations.FindByPair(ctx, f.userB, f.userA)
		require.NoError(t, err)

		require.NotNil(t, forward)
		require.NotNil(t, backward)
		assert.Equal(t, created.ID, forward.ID)
		assert.Equal(t, created.ID, backward.ID)
	})

	t.Run("get by id reports not found", func(t *testing.T) {
		f := setup(t)

		_, err := f.conversations.GetByID(context.Background(), 987654)
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("concurrent creates converge on one conversation", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		const workers = 16
		ids := make([]int64, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sender, recipient := f.userA, f.userB
				if i%2 == 1 {
					sender, recipient = recipient, sender
				}
				if i%3 == 0 {
					if existing, err := f.conversations.FindByPair(ctx, sender, recipient); err == nil && existing != nil {
						ids[i] = existing.ID
						return
					}
				}
				c, err := f.conversations.Create(ctx, sender, recipient)
				if assert.NoError(t, err) {
					ids[i] = c.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}

		list, err := f.conversations.ListByUser(ctx, f.userA)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)

		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.conversations.IncrementUnseen(ctx, conversation.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		final, err := f.conversations.GetByID(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, n, final.UnseenCount)
	})

	t.Run("increment and reset on missing conversation", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		_, err := f.conversations.IncrementUnseen(ctx, 424242)
		assert.True(t, errors.Is(err, errors.CodeNotFound))

		_, err = f.conversations.ResetUnseen(ctx, 424242)
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("reset is idempotent", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)
		_, err = f.conversations.IncrementUnseen(ctx, conversation.ID)
		require.NoError(t, err)

		first, err := f.conversations.ResetUnseen(ctx, conversation.ID)
		require.NoError(t, err)
		second, err := f.conversations.ResetUnseen(ctx, conversation.ID)
		require.NoError(t, err)

		assert.Equal(t, 0, first.UnseenCount)
		assert.Equal(t, 0, second.UnseenCount)
	})

	t.Run("watermark ownership", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)
		message, err := f.messages.Append(ctx, conversation.ID, f.userA, "hello")
		require.NoError(t, err)

		updated, err := f.conversations.SetWatermark(ctx, conversation.ID, f.userB, message.ID)
		require.NoError(t, err)

		mine, ok := updated.WatermarkFor(f.userB)
		require.True(t, ok)
		require.NotNil(t, mine)
		assert.Equal(t, message.ID, *mine)

		theirs, ok := updated.WatermarkFor(f.userA)
		require.True(t, ok)
		assert.Nil(t, theirs)

		_, err = f.conversations.SetWatermark(ctx, conversation.ID, f.userC, message.ID)
		assert.True(t, errors.Is(err, errors.CodeForbidden))

		after, err := f.conversations.GetByID(ctx, conversation.ID)
		require.NoError(t, err)
		theirs, _ = after.WatermarkFor(f.userA)
		assert.Nil(t, theirs)
		mine, _ = after.WatermarkFor(f.userB)
		require.NotNil(t, mine)
		assert.Equal(t, message.ID, *mine)
	})

	t.Run("watermark does not regress", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)
		first, err := f.messages.Append(ctx, conversation.ID, f.userA, "one")
		require.NoError(t, err)
		second, err := f.messages.Append(ctx, conversation.ID, f.userA, "two")
		require.NoError(t, err)

		_, err = f.conversations.SetWatermark(ctx, conversation.ID, f.userB, second.ID)
		require.NoError(t, err)
		updated, err := f.conversations.SetWatermark(ctx, conversation.ID, f.userB, first.ID)
		require.NoError(t, err)

		mine, _ := updated.WatermarkFor(f.userB)
		require.NotNil(t, mine)
		assert.Equal(t, second.ID, *mine)
	})

	t.Run("messages list in append order", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		conversation, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)
		texts := []string{"first", "second", "third"}
		for i, text := range texts {
			sender := f.userA
			if i == 1 {
				sender = f.userB
			}
			_, err := f.messages.Append(ctx, conversation.ID, sender, text)
			require.NoError(t, err)
		}

		messages, err := f.messages.ListByConversation(ctx, conversation.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		for i, m := range messages {
			assert.Equal(t, texts[i], m.Text)
			assert.Equal(t, conversation.ID, m.ConversationID)
			if i > 0 {
				assert.Greater(t, m.ID, messages[i-1].ID)
			}
		}

		got, err := f.messages.GetByID(ctx, conversation.ID, messages[1].ID)
		require.NoError(t, err)
		assert.Equal(t, f.userB, got.SenderID)

		other, err := f.conversations.Create(ctx, f.userA, f.userC)
		require.NoError(t, err)
		_, err = f.messages.GetByID(ctx, other.ID, messages[1].ID)
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("concurrent appends to separate conversations", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		first, err := f.conversations.Create(ctx, f.userA, f.userB)
		require.NoError(t, err)
		second, err := f.conversations.Create(ctx, f.userA, f.userC)
		require.NoError(t, err)

		const perConversation = 8
		var wg sync.WaitGroup
		for _, conversationID := range []int64{first.ID, second.ID} {
			for i := 0; i < perConversation; i++ {
				wg.Add(1)
				go func(conversationID int64) {
					defer wg.Done()
					_, err := f.messages.Append(ctx, conversationID, f.userA, "burst")
					assert.NoError(t, err)
				}(conversationID)
			}
		}
		wg.Wait()

		for _, conversationID := range []int64{first.ID, second.ID} {
			messages, err := f.messages.ListByConversation(ctx, conversationID)
			require.NoError(t, err)
			require.Len(t, messages, perConversation)
			for i, m := range messages {
				assert.Equal(t, conversationID, m.ConversationID)
				if i > 0 {
					assert.Greater(t, m.ID, messages[i-1].ID)
				}
			}
		}
	})
}
