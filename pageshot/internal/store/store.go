// CLAUDE:SUMMARY SQLite database handle for pageshot: opens with WAL pragmas and applies the capture schema.
// Package store provides the SQLite persistence layer for captures.
package store

import (
	"database/sql"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pageshot/dbopen"
)

// Store is the capture database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the capture database at path and applies the
// schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Digest returns the hex blake2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
