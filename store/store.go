package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/malonaz/navi/internal/file"
)

// Store implements durable client storage on top of SQLite.
// Values are JSON documents addressed by a unique entry name.
type Store struct {
	db *sql.DB
}

// New store.
func New(dbPath string) (*Store, error) {
	if err := file.CreateParentDirectory(dbPath); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// A single connection keeps writes serialized and ':memory:' databases coherent.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating entries table")
	}

	return &Store{
		db: db,
	}, nil
}

// Put writes value under the given entry name, replacing any previous value.
func (s *Store) Put(name string, value any) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshaling entry %s", name)
	}

	// Use REPLACE INTO to handle both insert and update cases
	_, err = s.db.Exec(`
		REPLACE INTO entries (name, value, update_timestamp)
		VALUES (?, ?, ?)
	`, name, string(bytes), time.Now().UnixMicro())
	if err != nil {
		return errors.Wrapf(err, "writing entry %s", name)
	}
	return nil
}

// Get reads the entry into value. It returns false if the entry does not exist.
func (s *Store) Get(name string, value any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM entries WHERE name = ?`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "querying entry %s", name)
	}

	if err := json.Unmarshal([]byte(raw), value); err != nil {
		return false, errors.Wrapf(err, "unmarshaling entry %s", name)
	}
	return true, nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE name = ?`, name); err != nil {
		return errors.Wrapf(err, "deleting entry %s", name)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
