// Package sqlite is the room directory and chat message sink, backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"minigames/internal/game"
	"minigames/internal/storage/sqlite/migrations"
)

// Room is a chat room. Owner is the only identity allowed to start games in it.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one persisted chat line.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrRoomExists = errors.New("room already exists")

// Store persists rooms and messages.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// CreateRoom inserts a room. An empty ID gets a fresh uuid.
func (s *Store) CreateRoom(ctx context.Context, room Room) (Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	room.Owner = strings.TrimSpace(room.Owner)
	if room.Name == "" {
		return Room{}, game.Errorf(game.CodeInvalidInput, "room name is required")
	}
	if room.Owner == "" {
		return Room{}, game.Errorf(game.CodeInvalidInput, "room owner is required")
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now()
	}
	room.CreatedAt = room.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (id, name, owner, created_at) VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, room.Owner, toMillis(room.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Room{}, ErrRoomExists
		}
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// GetRoom returns one room by id.
func (s *Store) GetRoom(ctx context.Context, id string) (Room, error) {
	var (
		room    Room
		created int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, owner, created_at FROM rooms WHERE id = ?`, id,
	).Scan(&room.ID, &room.Name, &room.Owner, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, game.Errorf(game.CodeNotFound, "room %s not found", id)
	}
	if err != nil {
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	room.CreatedAt = fromMillis(created)
	return room, nil
}

// CanStart reports whether identity owns room. Unknown rooms answer false.
func (s *Store) CanStart(ctx context.Context, room, identity string) (bool, error) {
	r, err := s.GetRoom(ctx, room)
	if errors.Is(err, game.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Owner == identity, nil
}

// AppendMessage persists one chat line and returns it with id and timestamp set.
func (s *Store) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" {
		return Message{}, game.Errorf(game.CodeInvalidInput, "message is empty")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, author, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.RoomID, msg.Author, msg.Content, toMillis(msg.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Message{}, game.Errorf(game.CodeNotFound, "room %s not found", msg.RoomID)
		}
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the newest limit messages of a room, oldest first.
func (s *Store) ListMessages(ctx context.Context, roomID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, room_id, author, content, created_at FROM messages
		 WHERE room_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			created int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Author, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// migrate applies every *.sql file of fsys once, in name order.
func migrate(db *sql.DB, fsys fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, time.Now().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
