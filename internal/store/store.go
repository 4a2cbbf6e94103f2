// Package store holds the four entity collections in memory, applies local
// mutations and remote merge upserts, and persists every change to a local
// sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hanpenneko/mossgrid/internal/habitday"
	"github.com/hanpenneko/mossgrid/internal/models"
	_ "modernc.org/sqlite"
)

const dbFile = ".mossgrid/mossgrid.db"

// Store wraps the in-memory collections and the database connection.
// All exported methods are safe for concurrent use; a single mutex
// serializes mutations from the CLI path and the auto-sync goroutine.
type Store struct {
	mu      sync.Mutex
	conn    *sql.DB
	baseDir string

	state       models.SyncState
	todos       []models.Todo
	habits      []models.Habit
	rules       []models.HabitRule
	completions []models.HabitCompletion

	// overridable in tests for deterministic stamps
	now   func() int64
	today func() string
}

// Open opens an existing database and hydrates all collections.
func Open(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'mossgrid init' first")
	}
	return open(baseDir, dbPath)
}

// Initialize creates the database, schema and a fresh device identity.
func Initialize(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(baseDir, dbPath)
}

func open(baseDir, dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	s := &Store{
		conn:    conn,
		baseDir: baseDir,
		now:     func() int64 { return time.Now().Unix() },
		today:   habitday.Today,
	}

	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.load(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) createSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS todos (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			memo        TEXT NOT NULL DEFAULT '',
			sort_order  INTEGER NOT NULL,
			is_deleted  INTEGER NOT NULL DEFAULT 0,
			deleted_at  INTEGER,
			updated_at  INTEGER NOT NULL,
			updated_by  TEXT NOT NULL,
			dirty       INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS habits (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			memo        TEXT NOT NULL DEFAULT '',
			sort_order  INTEGER NOT NULL,
			is_archived INTEGER NOT NULL DEFAULT 0,
			updated_at  INTEGER NOT NULL,
			updated_by  TEXT NOT NULL,
			dirty       INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS habit_rules (
			id                       TEXT PRIMARY KEY,
			habit_id                 TEXT NOT NULL,
			type                     TEXT NOT NULL,
			weekdays_mask            INTEGER NOT NULL DEFAULT 0,
			monthdays_json           TEXT NOT NULL DEFAULT '',
			effective_from_habit_day TEXT NOT NULL,
			updated_at               INTEGER NOT NULL,
			updated_by               TEXT NOT NULL,
			dirty                    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_habit_rules_habit ON habit_rules(habit_id);
		CREATE TABLE IF NOT EXISTS habit_completions (
			habit_id   TEXT NOT NULL,
			habit_day  TEXT NOT NULL,
			done       INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			updated_by TEXT NOT NULL,
			dirty      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (habit_id, habit_day)
		);
		CREATE TABLE IF NOT EXISTS sync_state (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			device_id       TEXT NOT NULL,
			sync_key        TEXT NOT NULL DEFAULT '',
			last_server_seq INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// load hydrates all four collections and the sync state. A missing
// sync_state row means a fresh database: a new device identity is minted
// and persisted.
func (s *Store) load() error {
	err := s.conn.QueryRow(`SELECT device_id, sync_key, last_server_seq FROM sync_state WHERE id = 1`).
		Scan(&s.state.DeviceID, &s.state.SyncKey, &s.state.LastServerSeq)
	if err == sql.ErrNoRows {
		s.state = models.SyncState{DeviceID: uuid.NewString()}
		if _, err := s.conn.Exec(
			`INSERT INTO sync_state (id, device_id, sync_key, last_server_seq) VALUES (1, ?, '', 0)`,
			s.state.DeviceID,
		); err != nil {
			return fmt.Errorf("init sync state: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	rows, err := s.conn.Query(`SELECT id, title, memo, sort_order, is_deleted, deleted_at, updated_at, updated_by, dirty FROM todos`)
	if err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.Todo
		var deletedAt sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &t.Memo, &t.SortOrder, &t.IsDeleted, &deletedAt, &t.UpdatedAt, &t.UpdatedBy, &t.Dirty); err != nil {
			return fmt.Errorf("scan todo: %w", err)
		}
		if deletedAt.Valid {
			t.DeletedAt = &deletedAt.Int64
		}
		s.todos = append(s.todos, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("todos iteration: %w", err)
	}

	hrows, err := s.conn.Query(`SELECT id, name, memo, sort_order, is_archived, updated_at, updated_by, dirty FROM habits`)
	if err != nil {
		return fmt.Errorf("load habits: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var h models.Habit
		if err := hrows.Scan(&h.ID, &h.Name, &h.Memo, &h.SortOrder, &h.IsArchived, &h.UpdatedAt, &h.UpdatedBy, &h.Dirty); err != nil {
			return fmt.Errorf("scan habit: %w", err)
		}
		s.habits = append(s.habits, h)
	}
	if err := hrows.Err(); err != nil {
		return fmt.Errorf("habits iteration: %w", err)
	}

	rrows, err := s.conn.Query(`SELECT id, habit_id, type, weekdays_mask, monthdays_json, effective_from_habit_day, updated_at, updated_by, dirty FROM habit_rules`)
	if err != nil {
		return fmt.Errorf("load habit rules: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var r models.HabitRule
		var monthdaysJSON string
		if err := rrows.Scan(&r.ID, &r.HabitID, &r.Type, &r.WeekdaysMask, &monthdaysJSON, &r.EffectiveFrom, &r.UpdatedAt, &r.UpdatedBy, &r.Dirty); err != nil {
			return fmt.Errorf("scan habit rule: %w", err)
		}
		days, err := models.DecodeMonthdays(monthdaysJSON)
		if err != nil {
			// fails closed: the rule loads with no active days
			slog.Warn("store: malformed monthdays, rule treated as inactive", "rule", r.ID, "err", err)
		}
		r.Monthdays = days
		s.rules = append(s.rules, r)
	}
	if err := rrows.Err(); err != nil {
		return fmt.Errorf("habit rules iteration: %w", err)
	}

	crows, err := s.conn.Query(`SELECT habit_id, habit_day, done, updated_at, updated_by, dirty FROM habit_completions`)
	if err != nil {
		return fmt.Errorf("load completions: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c models.HabitCompletion
		if err := crows.Scan(&c.HabitID, &c.HabitDay, &c.Done, &c.UpdatedAt, &c.UpdatedBy, &c.Dirty); err != nil {
			return fmt.Errorf("scan completion: %w", err)
		}
		s.completions = append(s.completions, c)
	}
	if err := crows.Err(); err != nil {
		return fmt.Errorf("completions iteration: %w", err)
	}

	return nil
}

// --- Row persistence ---
//
// The durability contract requires every mutation committed before the
// mutating call returns. Rows are upserted individually; multi-record
// mutations (reorders, habit+rule creation) go through one transaction.

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func saveTodo(e execer, t models.Todo) error {
	var deletedAt any
	if t.DeletedAt != nil {
		deletedAt = *t.DeletedAt
	}
	_, err := e.Exec(`
		INSERT INTO todos (id, title, memo, sort_order, is_deleted, deleted_at, updated_at, updated_by, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, memo=excluded.memo, sort_order=excluded.sort_order,
			is_deleted=excluded.is_deleted, deleted_at=excluded.deleted_at,
			updated_at=excluded.updated_at, updated_by=excluded.updated_by, dirty=excluded.dirty`,
		t.ID, t.Title, t.Memo, t.SortOrder, t.IsDeleted, deletedAt, t.UpdatedAt, t.UpdatedBy, t.Dirty)
	if err != nil {
		return fmt.Errorf("save todo %s: %w", t.ID, err)
	}
	return nil
}

func saveHabit(e execer, h models.Habit) error {
	_, err := e.Exec(`
		INSERT INTO habits (id, name, memo, sort_order, is_archived, updated_at, updated_by, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, memo=excluded.memo, sort_order=excluded.sort_order,
			is_archived=excluded.is_archived,
			updated_at=excluded.updated_at, updated_by=excluded.updated_by, dirty=excluded.dirty`,
		h.ID, h.Name, h.Memo, h.SortOrder, h.IsArchived, h.UpdatedAt, h.UpdatedBy, h.Dirty)
	if err != nil {
		return fmt.Errorf("save habit %s: %w", h.ID, err)
	}
	return nil
}

func saveRule(e execer, r models.HabitRule) error {
	_, err := e.Exec(`
		INSERT INTO habit_rules (id, habit_id, type, weekdays_mask, monthdays_json, effective_from_habit_day, updated_at, updated_by, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			habit_id=excluded.habit_id, type=excluded.type, weekdays_mask=excluded.weekdays_mask,
			monthdays_json=excluded.monthdays_json, effective_from_habit_day=excluded.effective_from_habit_day,
			updated_at=excluded.updated_at, updated_by=excluded.updated_by, dirty=excluded.dirty`,
		r.ID, r.HabitID, string(r.Type), r.WeekdaysMask, models.EncodeMonthdays(r.Monthdays), r.EffectiveFrom, r.UpdatedAt, r.UpdatedBy, r.Dirty)
	if err != nil {
		return fmt.Errorf("save rule %s: %w", r.ID, err)
	}
	return nil
}

func saveCompletion(e execer, c models.HabitCompletion) error {
	_, err := e.Exec(`
		INSERT INTO habit_completions (habit_id, habit_day, done, updated_at, updated_by, dirty)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, habit_day) DO UPDATE SET
			done=excluded.done,
			updated_at=excluded.updated_at, updated_by=excluded.updated_by, dirty=excluded.dirty`,
		c.HabitID, c.HabitDay, c.Done, c.UpdatedAt, c.UpdatedBy, c.Dirty)
	if err != nil {
		return fmt.Errorf("save completion %s/%s: %w", c.HabitID, c.HabitDay, err)
	}
	return nil
}

func (s *Store) saveSyncState() error {
	_, err := s.conn.Exec(
		`UPDATE sync_state SET device_id=?, sync_key=?, last_server_seq=? WHERE id = 1`,
		s.state.DeviceID, s.state.SyncKey, s.state.LastServerSeq)
	if err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Sync state ---

// SyncState returns a copy of the current sync identity and checkpoint.
func (s *Store) SyncState() models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DeviceID returns this device's identity.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeviceID
}

// SetSyncKey sets the sync key and resets the checkpoint: a new key is a
// new remote identity whose full history must be re-pulled. Local data is
// untouched.
func (s *Store) SetSyncKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SyncKey = key
	s.state.LastServerSeq = 0
	return s.saveSyncState()
}

// SetLastServerSeq persists the pull checkpoint.
func (s *Store) SetLastServerSeq(seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastServerSeq = seq
	return s.saveSyncState()
}
