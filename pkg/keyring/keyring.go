// Package keyring provides local storage of named saltpack key sets in
// a SQLite database.
package keyring

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("keyring: key set not found")
)

// KeySet holds the four hex-encoded keys produced by keygen.
type KeySet struct {
	Name      string
	EncryptPK string
	DecryptSK string
	VerifyPK  string
	SignSK    string
	CreatedAt int64
}

// Keyring manages the key database.
type Keyring struct {
	db *sql.DB
}

// Open opens (or creates) the keyring database at path.
func Open(path string) (*Keyring, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS keys (
			name TEXT PRIMARY KEY,
			encrypt_pk TEXT NOT NULL,
			decrypt_sk TEXT NOT NULL,
			verify_pk TEXT NOT NULL,
			sign_sk TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create keyring schema: %w", err)
	}

	return &Keyring{db: db}, nil
}

// Save adds or replaces a named key set.
func (k *Keyring) Save(set *KeySet) error {
	if set.CreatedAt == 0 {
		set.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO keys (name, encrypt_pk, decrypt_sk, verify_pk, sign_sk, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			encrypt_pk = excluded.encrypt_pk,
			decrypt_sk = excluded.decrypt_sk,
			verify_pk = excluded.verify_pk,
			sign_sk = excluded.sign_sk,
			created_at = excluded.created_at
	`

	_, err := k.db.Exec(query, set.Name, set.EncryptPK, set.DecryptSK, set.VerifyPK, set.SignSK, set.CreatedAt)
	return err
}

// Get retrieves a key set by name.
func (k *Keyring) Get(name string) (*KeySet, error) {
	query := `
		SELECT name, encrypt_pk, decrypt_sk, verify_pk, sign_sk, created_at
		FROM keys WHERE name = ?
	`

	set := &KeySet{}
	err := k.db.QueryRow(query, name).Scan(
		&set.Name,
		&set.EncryptPK,
		&set.DecryptSK,
		&set.VerifyPK,
		&set.SignSK,
		&set.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return set, nil
}

// List returns all stored key sets ordered by name.
func (k *Keyring) List() ([]*KeySet, error) {
	query := `
		SELECT name, encrypt_pk, decrypt_sk, verify_pk, sign_sk, created_at
		FROM keys ORDER BY name
	`

	rows, err := k.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*KeySet
	for rows.Next() {
		set := &KeySet{}
		err := rows.Scan(
			&set.Name,
			&set.EncryptPK,
			&set.DecryptSK,
			&set.VerifyPK,
			&set.SignSK,
			&set.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	return sets, rows.Err()
}

// Delete removes a key set by name.
func (k *Keyring) Delete(name string) error {
	result, err := k.db.Exec(`DELETE FROM keys WHERE name = ?`, name)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (k *Keyring) Close() error {
	return k.db.Close()
}
