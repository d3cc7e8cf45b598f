package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock hands out timestamps one second apart, or repeats the same
// instant when step is zero.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC), step: step}
}

type backend struct {
	name string
	open func(t *testing.T, opts ...Option) Store
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T, opts ...Option) Store {
			return NewMemoryStore(opts...)
		}},
		{name: "sqlite", open: func(t *testing.T, opts ...Option) Store {
			s, err := OpenSQLite(context.Background(), opts...)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestUsers(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			alice, err := s.CreateUser(ctx, "alice", "secret")
			require.NoError(t, err)
			require.NotEmpty(t, alice.ID)
			assert.Equal(t, "alice", alice.Username)
			assert.Equal(t, "secret", alice.Password)

			got, err := s.GetUser(ctx, alice.ID)
			require.NoError(t, err)
			assert.Equal(t, alice, got)

			got, err = s.GetUserByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, alice, got)

			_, err = s.GetUserByUsername(ctx, "bob")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetUser(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDuplicateUsernamesAreNotRejected(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			first, err := s.CreateUser(ctx, "carol", "one")
			require.NoError(t, err)
			second, err := s.CreateUser(ctx, "carol", "two")
			require.NoError(t, err)
			assert.NotEqual(t, first.ID, second.ID)

			got, err := s.GetUserByUsername(ctx, "carol")
			require.NoError(t, err)
			assert.Equal(t, first.ID, got.ID)
		})
	}
}

func TestChatMessagesAscending(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock(time.Second)
			s := b.open(t, WithClock(clock.Now))

			var created []ChatMessage
			for i, role := range []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant} {
				m, err := s.CreateChatMessage(ctx, NewChatMessage{Content: fmt.Sprintf("m%d", i), Role: role, Model: "mistral"})
				require.NoError(t, err)
				created = append(created, m)
			}

			got, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			require.Len(t, got, 4)
			for i := range created {
				assert.Equal(t, created[i].ID, got[i].ID)
				assert.Equal(t, created[i].Content, got[i].Content)
				assert.Equal(t, created[i].Role, got[i].Role)
				assert.True(t, created[i].Timestamp.Equal(got[i].Timestamp))
			}
		})
	}
}

func TestChatMessagesOrderedByTimestampNotArrival(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			stamps := []time.Time{base.Add(2 * time.Second), base, base.Add(time.Second)}
			i := 0
			s := b.open(t, WithClock(func() time.Time { ts := stamps[i]; i++; return ts }))

			for _, c := range []string{"late", "early", "middle"} {
				_, err := s.CreateChatMessage(ctx, NewChatMessage{Content: c, Role: RoleUser, Model: "llama3"})
				require.NoError(t, err)
			}

			got, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"early", "middle", "late"}, []string{got[0].Content, got[1].Content, got[2].Content})
		})
	}
}

func TestChatMessageTiesKeepArrivalOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t, WithClock(newClock(0).Now))

			for _, c := range []string{"a", "b", "c"} {
				_, err := s.CreateChatMessage(ctx, NewChatMessage{Content: c, Role: RoleUser, Model: "llama3"})
				require.NoError(t, err)
			}

			got, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Content, got[1].Content, got[2].Content})
		})
	}
}

func TestGeneratedImagesDescending(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t, WithClock(newClock(time.Second).Now))

			first, err := s.CreateGeneratedImage(ctx, NewGeneratedImage{Prompt: "a red cube", ImageURL: "data:image/jpeg;base64,AA==", Model: "sd2.1"})
			require.NoError(t, err)
			second, err := s.CreateGeneratedImage(ctx, NewGeneratedImage{
				Prompt:   "a blue sphere",
				ImageURL: "data:image/jpeg;base64,AQ==",
				Model:    "sdxl",
				Settings: &ImageSettings{Style: "photo", AspectRatio: "16:9"},
			})
			require.NoError(t, err)

			got, err := s.ListGeneratedImages(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, second.ID, got[0].ID)
			assert.Equal(t, first.ID, got[1].ID)
			assert.Nil(t, got[1].Settings)
			require.NotNil(t, got[0].Settings)
			assert.Equal(t, ImageSettings{Style: "photo", AspectRatio: "16:9"}, *got[0].Settings)
		})
	}
}

func TestGeneratedImageTiesListLatestArrivalFirst(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t, WithClock(newClock(0).Now))

			for _, p := range []string{"one", "two", "three"} {
				_, err := s.CreateGeneratedImage(ctx, NewGeneratedImage{Prompt: p, ImageURL: "data:image/jpeg;base64,", Model: "sd1.5"})
				require.NoError(t, err)
			}

			got, err := s.ListGeneratedImages(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"three", "two", "one"}, []string{got[0].Prompt, got[1].Prompt, got[2].Prompt})
		})
	}
}

func TestListingDoesNotMutate(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t, WithClock(newClock(time.Second).Now))

			_, err := s.CreateChatMessage(ctx, NewChatMessage{Content: "hi", Role: RoleUser, Model: "mistral"})
			require.NoError(t, err)
			_, err = s.CreateGeneratedImage(ctx, NewGeneratedImage{Prompt: "p", ImageURL: "u", Model: "sd2.1", Settings: &ImageSettings{Style: "anime"}})
			require.NoError(t, err)

			msgs1, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			imgs1, err := s.ListGeneratedImages(ctx)
			require.NoError(t, err)

			msgs1[0].Content = "changed"
			imgs1[0].Settings.Style = "changed"

			msgs2, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			imgs2, err := s.ListGeneratedImages(ctx)
			require.NoError(t, err)

			assert.Equal(t, "hi", msgs2[0].Content)
			assert.Equal(t, "anime", imgs2[0].Settings.Style)
		})
	}
}

func TestEmptyListsAreNotNil(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			msgs, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			assert.NotNil(t, msgs)
			assert.Empty(t, msgs)

			imgs, err := s.ListGeneratedImages(ctx)
			require.NoError(t, err)
			assert.NotNil(t, imgs)
			assert.Empty(t, imgs)
		})
	}
}

func TestConcurrentAppendsProduceUniqueIDs(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.CreateChatMessage(ctx, NewChatMessage{Content: fmt.Sprintf("m%d", i), Role: RoleUser, Model: "llama3"})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := s.ListChatMessages(ctx)
			require.NoError(t, err)
			require.Len(t, got, n)
			seen := make(map[string]struct{}, n)
			for _, m := range got {
				seen[m.ID] = struct{}{}
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestMemoryStoreRedrawsCollidingIDs(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	s := NewMemoryStore(WithIDGenerator(func() string { id := ids[i]; i++; return id }))
	ctx := context.Background()

	first, err := s.CreateChatMessage(ctx, NewChatMessage{Content: "a", Role: RoleUser, Model: "mistral"})
	require.NoError(t, err)
	second, err := s.CreateChatMessage(ctx, NewChatMessage{Content: "b", Role: RoleUser, Model: "mistral"})
	require.NoError(t, err)

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, "SQLite")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "postgres")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
