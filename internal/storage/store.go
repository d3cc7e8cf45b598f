package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)

// Store is the process-lifetime repository for users, chat turns and
// generated images. Records are append-only: nothing is updated or deleted
// once created. Implementations must be safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	CreateChatMessage(ctx context.Context, msg NewChatMessage) (ChatMessage, error)
	// ListChatMessages returns every message, oldest first.
	ListChatMessages(ctx context.Context) ([]ChatMessage, error)

	CreateGeneratedImage(ctx context.Context, img NewGeneratedImage) (GeneratedImage, error)
	// ListGeneratedImages returns every image, newest first.
	ListGeneratedImages(ctx context.Context) ([]GeneratedImage, error)

	Close() error
}

type options struct {
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

type Option func(*options)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the record id source.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open constructs the store backend named by driver.
func Open(ctx context.Context, driver string, opts ...Option) (Store, error) {
	switch normalizeDriver(driver) {
	case "memory":
		return NewMemoryStore(opts...), nil
	case "sqlite":
		return OpenSQLite(ctx, opts...)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, driver)
	}
}

func normalizeDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch d {
	case "", "memory", "mem", "inmemory":
		return "memory"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return d
	}
}
