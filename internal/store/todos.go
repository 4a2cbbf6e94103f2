package store

import (
	"database/sql"
	"sort"

	"github.com/google/uuid"
	"github.com/hanpenneko/mossgrid/internal/models"
)

// TodoUpdate holds optional field changes for UpdateTodo. Nil fields are
// left as-is.
type TodoUpdate struct {
	Title     *string
	Memo      *string
	SortOrder *int
}

// AddTodo creates a todo at the end of the active order.
func (s *Store) AddTodo(title, memo string) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := models.Todo{
		ID:        uuid.NewString(),
		Title:     title,
		Memo:      memo,
		SortOrder: s.maxActiveTodoOrder() + 1,
	}
	t.Stamp(s.now(), s.state.DeviceID)
	s.todos = append(s.todos, t)
	return t, saveTodo(s.conn, t)
}

// UpdateTodo applies partial field changes. Unknown IDs are a no-op.
func (s *Store) UpdateTodo(id string, upd TodoUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return nil
	}
	t := &s.todos[i]
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Memo != nil {
		t.Memo = *upd.Memo
	}
	if upd.SortOrder != nil {
		t.SortOrder = *upd.SortOrder
	}
	t.Stamp(s.now(), s.state.DeviceID)
	return saveTodo(s.conn, *t)
}

// DeleteTodo tombstones a todo. The record stays in the collection so the
// deletion merges correctly and can be restored.
func (s *Store) DeleteTodo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return nil
	}
	t := &s.todos[i]
	now := s.now()
	t.IsDeleted = true
	t.DeletedAt = &now
	t.Stamp(now, s.state.DeviceID)
	return saveTodo(s.conn, *t)
}

// RestoreTodo clears a tombstone and re-appends the todo to the end of the
// active order (not its original position).
func (s *Store) RestoreTodo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return nil
	}
	t := &s.todos[i]
	t.IsDeleted = false
	t.DeletedAt = nil
	t.SortOrder = s.maxActiveTodoOrder() + 1
	t.Stamp(s.now(), s.state.DeviceID)
	return saveTodo(s.conn, *t)
}

// ReorderTodos moves the active todo at fromIndex to toIndex (splice, not
// swap) and renumbers the whole active subset to dense 1-based positions.
// Only todos whose position actually changed are re-stamped dirty, keeping
// sync traffic minimal. Out-of-range indexes are a no-op.
func (s *Store) ReorderTodos(fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeTodoIndexes()
	if fromIndex < 0 || fromIndex >= len(active) || toIndex < 0 || toIndex >= len(active) {
		return nil
	}

	moved := active[fromIndex]
	active = append(active[:fromIndex], active[fromIndex+1:]...)
	active = append(active[:toIndex], append([]int{moved}, active[toIndex:]...)...)

	now := s.now()
	var changed []models.Todo
	for pos, idx := range active {
		order := pos + 1
		if s.todos[idx].SortOrder == order {
			continue
		}
		s.todos[idx].SortOrder = order
		s.todos[idx].Stamp(now, s.state.DeviceID)
		changed = append(changed, s.todos[idx])
	}
	if len(changed) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		for _, t := range changed {
			if err := saveTodo(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// ActiveTodos returns non-deleted todos ordered by sort_order.
func (s *Store) ActiveTodos() []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Todo
	for _, t := range s.todos {
		if !t.IsDeleted {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// DeletedTodos returns tombstoned todos, most recently deleted first.
func (s *Store) DeletedTodos() []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Todo
	for _, t := range s.todos {
		if t.IsDeleted {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		var di, dj int64
		if out[i].DeletedAt != nil {
			di = *out[i].DeletedAt
		}
		if out[j].DeletedAt != nil {
			dj = *out[j].DeletedAt
		}
		return di > dj
	})
	return out
}

// --- helpers (callers hold s.mu) ---

func (s *Store) todoIndex(id string) int {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) maxActiveTodoOrder() int {
	max := 0
	for _, t := range s.todos {
		if !t.IsDeleted && t.SortOrder > max {
			max = t.SortOrder
		}
	}
	return max
}

// activeTodoIndexes returns indexes into s.todos for the active subset,
// ordered by sort_order.
func (s *Store) activeTodoIndexes() []int {
	var idx []int
	for i := range s.todos {
		if !s.todos[i].IsDeleted {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return s.todos[idx[a]].SortOrder < s.todos[idx[b]].SortOrder
	})
	return idx
}
