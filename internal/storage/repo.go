package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

func (s *SQLiteStore) CreateUser(ctx context.Context, username, password string) (User, error) {
	u := User{ID: s.opts.newID(), Username: username, Password: password}
	q := s.sql.Insert("users").
		Columns("id", "username", "password").
		Values(u.ID, u.Username, u.Password)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build create user query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUserWhere(ctx, sq.Eq{"id": id})
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUserWhere(ctx, sq.Eq{"username": username})
}

func (s *SQLiteStore) getUserWhere(ctx context.Context, pred sq.Eq) (User, error) {
	q := s.sql.Select("id", "username", "password").
		From("users").
		Where(pred).
		OrderBy("seq ASC").
		Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build get user query: %w", err)
	}

	var u User
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&u.ID, &u.Username, &u.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) CreateChatMessage(ctx context.Context, in NewChatMessage) (ChatMessage, error) {
	msg := ChatMessage{
		ID:        s.opts.newID(),
		Content:   in.Content,
		Role:      in.Role,
		Model:     in.Model,
		Timestamp: s.opts.now(),
	}
	q := s.sql.Insert("chat_messages").
		Columns("id", "content", "role", "model", "created_at").
		Values(msg.ID, msg.Content, string(msg.Role), msg.Model, msg.Timestamp.UnixNano())

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return ChatMessage{}, fmt.Errorf("build create chat message query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return ChatMessage{}, fmt.Errorf("create chat message: %w", err)
	}
	return msg, nil
}

func (s *SQLiteStore) ListChatMessages(ctx context.Context) ([]ChatMessage, error) {
	q := s.sql.Select("id", "content", "role", "model", "created_at").
		From("chat_messages").
		OrderBy("created_at ASC", "seq ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list chat messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]ChatMessage, 0)
	for rows.Next() {
		var m ChatMessage
		var role string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Content, &role, &m.Model, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = Role(role)
		m.Timestamp = time.Unix(0, createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) CreateGeneratedImage(ctx context.Context, in NewGeneratedImage) (GeneratedImage, error) {
	img := GeneratedImage{
		ID:        s.opts.newID(),
		Prompt:    in.Prompt,
		ImageURL:  in.ImageURL,
		Model:     in.Model,
		Settings:  cloneSettings(in.Settings),
		Timestamp: s.opts.now(),
	}

	var settingsJSON sql.NullString
	if img.Settings != nil {
		b, err := json.Marshal(img.Settings)
		if err != nil {
			return GeneratedImage{}, fmt.Errorf("marshal image settings: %w", err)
		}
		settingsJSON = sql.NullString{String: string(b), Valid: true}
	}

	q := s.sql.Insert("generated_images").
		Columns("id", "prompt", "image_url", "model", "settings_json", "created_at").
		Values(img.ID, img.Prompt, img.ImageURL, img.Model, settingsJSON, img.Timestamp.UnixNano())

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return GeneratedImage{}, fmt.Errorf("build create image query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return GeneratedImage{}, fmt.Errorf("create generated image: %w", err)
	}
	return img, nil
}

func (s *SQLiteStore) ListGeneratedImages(ctx context.Context) ([]GeneratedImage, error) {
	q := s.sql.Select("id", "prompt", "image_url", "model", "settings_json", "created_at").
		From("generated_images").
		OrderBy("created_at DESC", "seq DESC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list images query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list generated images: %w", err)
	}
	defer rows.Close()

	out := make([]GeneratedImage, 0)
	for rows.Next() {
		var img GeneratedImage
		var settingsJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&img.ID, &img.Prompt, &img.ImageURL, &img.Model, &settingsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generated image: %w", err)
		}
		if settingsJSON.Valid {
			var st ImageSettings
			if err := json.Unmarshal([]byte(settingsJSON.String), &st); err != nil {
				return nil, fmt.Errorf("decode image settings %s: %w", img.ID, err)
			}
			img.Settings = &st
		}
		img.Timestamp = time.Unix(0, createdAt)
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generated images: %w", err)
	}
	return out, nil
}
