package storage

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps every record in maps keyed by id. The order slices record
// arrival so that equal timestamps list in a stable order.
type MemoryStore struct {
	opts options

	mu          sync.RWMutex
	users       map[string]User
	userOrder   []string
	messages    map[string]ChatMessage
	msgOrder    []string
	images      map[string]GeneratedImage
	imageOrder  []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:     buildOptions(opts),
		users:    make(map[string]User),
		messages: make(map[string]ChatMessage),
		images:   make(map[string]GeneratedImage),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{ID: s.uniqueID(func(id string) bool { _, ok := s.users[id]; return ok }), Username: username, Password: password}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return u, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.userOrder {
		if u := s.users[id]; u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) CreateChatMessage(_ context.Context, in NewChatMessage) (ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ChatMessage{
		ID:        s.uniqueID(func(id string) bool { _, ok := s.messages[id]; return ok }),
		Content:   in.Content,
		Role:      in.Role,
		Model:     in.Model,
		Timestamp: s.opts.now(),
	}
	s.messages[msg.ID] = msg
	s.msgOrder = append(s.msgOrder, msg.ID)
	return msg, nil
}

func (s *MemoryStore) ListChatMessages(_ context.Context) ([]ChatMessage, error) {
	s.mu.RLock()
	out := make([]ChatMessage, 0, len(s.msgOrder))
	for _, id := range s.msgOrder {
		out = append(out, s.messages[id])
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b ChatMessage) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) CreateGeneratedImage(_ context.Context, in NewGeneratedImage) (GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := GeneratedImage{
		ID:        s.uniqueID(func(id string) bool { _, ok := s.images[id]; return ok }),
		Prompt:    in.Prompt,
		ImageURL:  in.ImageURL,
		Model:     in.Model,
		Settings:  cloneSettings(in.Settings),
		Timestamp: s.opts.now(),
	}
	s.images[img.ID] = img
	s.imageOrder = append(s.imageOrder, img.ID)
	return withSettingsCopy(img), nil
}

func (s *MemoryStore) ListGeneratedImages(_ context.Context) ([]GeneratedImage, error) {
	s.mu.RLock()
	out := make([]GeneratedImage, 0, len(s.imageOrder))
	// Walk arrival order backwards so ties keep the latest arrival first.
	for i := len(s.imageOrder) - 1; i >= 0; i-- {
		out = append(out, withSettingsCopy(s.images[s.imageOrder[i]]))
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b GeneratedImage) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// uniqueID draws ids until one is unused. Callers hold s.mu.
func (s *MemoryStore) uniqueID(taken func(string) bool) string {
	for {
		id := s.opts.newID()
		if !taken(id) {
			return id
		}
		s.opts.logger.Warn().Str("id", id).Msg("id collision, drawing a new id")
	}
}

func cloneSettings(in *ImageSettings) *ImageSettings {
	if in == nil {
		return nil
	}
	cp := *in
	return &cp
}

func withSettingsCopy(img GeneratedImage) GeneratedImage {
	img.Settings = cloneSettings(img.Settings)
	return img
}
