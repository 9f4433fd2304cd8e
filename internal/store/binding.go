package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Binding is a stored gesture-to-action mapping.
type Binding struct {
	ID        string
	Gesture   string
	Direction string
	Action    gesture.Action
	Position  int
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

// Create inserts a new binding. An empty ID is assigned a fresh UUID; a
// zero Position places the binding after all existing ones.
func (r *BindingRepository) Create(b *Binding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Position == 0 {
		var max sql.NullInt64
		if err := r.db.QueryRow(`SELECT MAX(position) FROM bindings`).Scan(&max); err != nil {
			return err
		}
		b.Position = int(max.Int64) + 1
	}

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO bindings (id, gesture, direction, action, position, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Gesture, b.Direction, string(b.Action), b.Position, b.Enabled, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetByID retrieves a binding by its ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	b := &Binding{}
	var action string

	err := r.db.QueryRow(
		`SELECT id, gesture, direction, action, position, enabled, created_at, updated_at
		 FROM bindings WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.Gesture, &b.Direction, &action, &b.Position, &b.Enabled, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	b.Action = gesture.Action(action)
	return b, nil
}

// List retrieves all bindings ordered by position.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, direction, action, position, enabled, created_at, updated_at
		 FROM bindings ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		var action string

		err := rows.Scan(&b.ID, &b.Gesture, &b.Direction, &action, &b.Position, &b.Enabled, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}

		b.Action = gesture.Action(action)
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bindings, nil
}

// Update updates an existing binding.
func (r *BindingRepository) Update(b *Binding) error {
	b.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE bindings SET gesture = ?, direction = ?, action = ?, position = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		b.Gesture, b.Direction, string(b.Action), b.Position, b.Enabled, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a binding by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Active loads the enabled bindings in position order as a resolvable
// binding table.
func (r *BindingRepository) Active() (gesture.Bindings, error) {
	rows, err := r.db.Query(
		`SELECT gesture, direction, action FROM bindings
		 WHERE enabled = 1 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table gesture.Bindings
	for rows.Next() {
		var b gesture.Binding
		var action string
		if err := rows.Scan(&b.Gesture, &b.Direction, &action); err != nil {
			return nil, err
		}
		b.Action = gesture.Action(action)
		table = append(table, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// SeedDefaults inserts the built-in binding table when the bindings
// table is empty. Existing rows are left untouched.
func (r *BindingRepository) SeedDefaults() error {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bindings`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i, b := range gesture.DefaultBindings() {
		binding := &Binding{
			Gesture:   b.Gesture,
			Direction: b.Direction,
			Action:    b.Action,
			Position:  i + 1,
			Enabled:   true,
		}
		if err := r.Create(binding); err != nil {
			return err
		}
	}

	return nil
}
