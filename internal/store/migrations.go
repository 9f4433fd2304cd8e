package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Bindings table - maps recognized gestures to deck actions.
		// Position determines match order: the first enabled row whose
		// gesture (and direction, when set) matches wins.
		`CREATE TABLE IF NOT EXISTS bindings (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL,
			direction TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			position INTEGER NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bindings_position ON bindings(position)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
