// SPDX-License-Identifier: AGPL-3.0-only
package biochem

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/errors"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"

	_ "modernc.org/sqlite"
)

// DB is a biochemistry lookup database backed by SQLite. Compound and
// reaction lookups by ID are indexed; searches are substring matches over
// names and aliases.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the biochemistry database at dbPath, enables WAL
// mode, runs pending schema migrations, and seeds the built-in compound and
// reaction set when the tables are empty.
func Open(dbPath string) (*DB, error) {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	d := &DB{db: db}
	if err := d.seedIfEmpty(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed database: %w", err)
	}

	return d, nil
}

// InsertCompound adds or replaces a compound record.
func (d *DB) InsertCompound(c *model.Compound) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO compounds (id, name, formula, charge, aliases)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Formula, c.Charge, strings.Join(c.Aliases, "|"),
	)
	if err != nil {
		return fmt.Errorf("insert compound: %w", err)
	}
	return nil
}

// InsertReaction adds or replaces a reaction record.
func (d *DB) InsertReaction(r *model.Reaction) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO reactions (id, name, equation, reversibility, deltag)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Equation, r.Reversibility, r.DeltaG,
	)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

// GetCompound returns the compound with the given ID.
func (d *DB) GetCompound(id string) (*model.Compound, error) {
	row := d.db.QueryRow(`
		SELECT id, name, formula, charge, aliases
		FROM compounds WHERE id = ?`, id)

	var c model.Compound
	var aliases string
	if err := row.Scan(&c.ID, &c.Name, &c.Formula, &c.Charge, &aliases); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("compound", id)
		}
		return nil, fmt.Errorf("scan compound: %w", err)
	}
	if aliases != "" {
		c.Aliases = strings.Split(aliases, "|")
	}
	return &c, nil
}

// GetReaction returns the reaction with the given ID.
func (d *DB) GetReaction(id string) (*model.Reaction, error) {
	row := d.db.QueryRow(`
		SELECT id, name, equation, reversibility, deltag
		FROM reactions WHERE id = ?`, id)

	var r model.Reaction
	if err := row.Scan(&r.ID, &r.Name, &r.Equation, &r.Reversibility, &r.DeltaG); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("reaction", id)
		}
		return nil, fmt.Errorf("scan reaction: %w", err)
	}
	return &r, nil
}

// SearchCompounds returns up to limit compounds whose name or aliases
// contain the query substring, case-insensitively, ordered by ID.
func (d *DB) SearchCompounds(query string, limit int) ([]*model.Compound, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := d.db.Query(`
		SELECT id, name, formula, charge, aliases
		FROM compounds
		WHERE lower(name) LIKE ? OR lower(aliases) LIKE ?
		ORDER BY id
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query compounds: %w", err)
	}
	defer rows.Close()

	var out []*model.Compound
	for rows.Next() {
		var c model.Compound
		var aliases string
		if err := rows.Scan(&c.ID, &c.Name, &c.Formula, &c.Charge, &aliases); err != nil {
			return nil, fmt.Errorf("scan compound row: %w", err)
		}
		if aliases != "" {
			c.Aliases = strings.Split(aliases, "|")
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compound rows: %w", err)
	}
	return out, nil
}

// SearchReactions returns up to limit reactions whose name or equation
// contain the query substring, case-insensitively, ordered by ID.
func (d *DB) SearchReactions(query string, limit int) ([]*model.Reaction, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := d.db.Query(`
		SELECT id, name, equation, reversibility, deltag
		FROM reactions
		WHERE lower(name) LIKE ? OR lower(equation) LIKE ?
		ORDER BY id
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Reaction
	for rows.Next() {
		var r model.Reaction
		if err := rows.Scan(&r.ID, &r.Name, &r.Equation, &r.Reversibility, &r.DeltaG); err != nil {
			return nil, fmt.Errorf("scan reaction row: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
