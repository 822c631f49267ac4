// Package index maintains an embedded SQLite mirror of the leaderboard.
//
// The cache store holds collections as opaque JSON text; rank and list
// queries would otherwise rescan and re-sort it on every read. The
// index keeps players (with their derived rank) and published levels in
// SQLite so the CLI status output and the dashboard stats read from
// indexed tables. It is derived state, rebuilt from the cache, never a
// source of truth.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/arclist/arclist/internal/list"
	"github.com/arclist/arclist/internal/model"
)

// Index wraps the SQLite connection holding the derived tables.
type Index struct {
	conn *sql.DB
	path string
}

// Open creates or opens the index database at path and applies the
// schema. The caller must Close when done.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ix := &Index{conn: conn, path: path}

	// WAL keeps readers unblocked while a rebuild writes.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := ix.conn.Exec(pragma); err != nil {
			_ = ix.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := ix.initSchema(context.Background()); err != nil {
		_ = ix.Close()
		return nil, err
	}
	return ix, nil
}

// Close checkpoints the WAL and closes the connection.
func (ix *Index) Close() error {
	if ix.conn == nil {
		return nil
	}
	if _, err := ix.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := ix.conn.Close(); err != nil {
		return fmt.Errorf("failed to close index database: %w", err)
	}
	ix.conn = nil
	return nil
}

// initSchema creates the derived tables. Idempotent.
func (ix *Index) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		nationality TEXT,
		points INTEGER NOT NULL DEFAULT 0,
		rank INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS list_levels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		placement INTEGER NOT NULL,
		video TEXT,
		creators TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_players_rank ON players(rank);
	CREATE INDEX IF NOT EXISTS idx_players_points ON players(points);
	CREATE INDEX IF NOT EXISTS idx_levels_placement ON list_levels(placement);
	`
	if _, err := ix.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return nil
}

// Rebuild replaces the derived tables from the current cache state.
// Ranks are computed here, at rebuild time; the user records themselves
// never carry one.
func (ix *Index) Rebuild(ctx context.Context, users []model.User, levels []model.Level) error {
	tx, err := ix.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM players"); err != nil {
		return fmt.Errorf("failed to clear players: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM list_levels"); err != nil {
		return fmt.Errorf("failed to clear levels: %w", err)
	}

	for _, r := range list.Rankings(users) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO players (id, username, role, nationality, points, rank)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.User.ID, r.User.Username, string(r.User.Role), r.User.Nationality, r.User.Points, r.Rank,
		)
		if err != nil {
			return fmt.Errorf("failed to index player %s: %w", r.User.ID, err)
		}
	}

	for _, l := range levels {
		if l.Status != model.LevelPublished {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO list_levels (id, name, placement, video, creators)
			VALUES (?, ?, ?, ?, ?)`,
			l.ID, l.Name, l.Placement, l.Video, strings.Join(l.Creators, ", "),
		)
		if err != nil {
			return fmt.Errorf("failed to index level %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}

// Player is one leaderboard row.
type Player struct {
	ID          string
	Username    string
	Role        string
	Nationality string
	Points      int
	Rank        int
}

// TopPlayers returns the leaderboard head, best rank first.
// Limit 0 means no limit.
func (ix *Index) TopPlayers(ctx context.Context, limit int) ([]Player, error) {
	query := `
		SELECT id, username, role, nationality, points, rank
		FROM players
		ORDER BY rank ASC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ix.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		var nationality sql.NullString
		if err := rows.Scan(&p.ID, &p.Username, &p.Role, &nationality, &p.Points, &p.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.Nationality = nationality.String
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// ListLevel is one published list row.
type ListLevel struct {
	ID        string
	Name      string
	Placement int
	Video     string
	Creators  string
}

// LevelsByPlacement returns the published list, hardest first.
func (ix *Index) LevelsByPlacement(ctx context.Context) ([]ListLevel, error) {
	rows, err := ix.conn.QueryContext(ctx, `
		SELECT id, name, placement, video, creators
		FROM list_levels
		ORDER BY placement ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels: %w", err)
	}
	defer rows.Close()

	var levels []ListLevel
	for rows.Next() {
		var l ListLevel
		var video, creators sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Placement, &video, &creators); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		l.Video = video.String
		l.Creators = creators.String
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating levels: %w", err)
	}
	return levels, nil
}

// Counts returns the indexed player and level totals.
func (ix *Index) Counts(ctx context.Context) (players, levels int, err error) {
	if err = ix.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&players); err != nil {
		return 0, 0, fmt.Errorf("failed to count players: %w", err)
	}
	if err = ix.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM list_levels").Scan(&levels); err != nil {
		return 0, 0, fmt.Errorf("failed to count levels: %w", err)
	}
	return players, levels, nil
}
