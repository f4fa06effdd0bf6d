// Package storage provides SQLite-based persistence for scores and match
// results. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/roguedex/internal/multiplayer"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ScoreEntry is one player's final score in one match.
type ScoreEntry struct {
	ID        int64     `json:"id"`
	Mode      string    `json:"mode"`
	Player    string    `json:"player"`
	Score     int       `json:"score"`
	Lines     int       `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchRecord is the stored outcome of a match.
type MatchRecord struct {
	ID        int64     `json:"id"`
	MatchID   string    `json:"match_id"`
	Mode      string    `json:"mode"`
	Player1   string    `json:"player1"`
	Player2   string    `json:"player2"`
	Score1    int       `json:"score1"`
	Score2    int       `json:"score2"`
	Lines1    int       `json:"lines1"`
	Lines2    int       `json:"lines2"`
	Winner    string    `json:"winner,omitempty"` // Empty if no winner
	EndReason string    `json:"end_reason"`
	Ticks     uint64    `json:"ticks"`
	Duration  int       `json:"duration_secs"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// One writer keeps SQLite from reporting busy under the coordinator
	// and the observer together.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			player TEXT NOT NULL,
			score INTEGER NOT NULL,
			lines INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(mode, score DESC);
		CREATE INDEX IF NOT EXISTS idx_scores_player ON scores(player);

		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			player1 TEXT NOT NULL,
			player2 TEXT NOT NULL,
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0,
			lines1 INTEGER NOT NULL DEFAULT 0,
			lines2 INTEGER NOT NULL DEFAULT 0,
			winner TEXT,
			end_reason TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			digest TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_match_results_mode ON match_results(mode);
		CREATE INDEX IF NOT EXISTS idx_match_results_player1 ON match_results(player1);
		CREATE INDEX IF NOT EXISTS idx_match_results_player2 ON match_results(player2);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime reads a DATETIME column, which the driver returns either as a
// time.Time or as text.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveScore records a final score. Returns the ID of the inserted record.
func (s *Store) SaveScore(mode, player string, score, lines int) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO scores (mode, player, score, lines) VALUES (?, ?, ?, ?)",
		mode, player, score, lines,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopScores retrieves the top N scores for a mode, or for every mode when
// mode is empty. Results are ordered by score descending.
func (s *Store) TopScores(mode string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, mode, player, score, lines, created_at
		 FROM scores
		 WHERE ? = '' OR mode = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		mode, mode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Mode, &e.Player, &e.Score, &e.Lines, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// HighScore returns the highest score of a player in a mode.
// Returns 0 if no scores exist.
func (s *Store) HighScore(mode, player string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE mode = ? AND player = ?",
		mode, player,
	).Scan(&score)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}

	if !score.Valid {
		return 0, nil
	}

	return int(score.Int64), nil
}

// ClearScores deletes all scores for a mode.
func (s *Store) ClearScores(mode string) error {
	_, err := s.db.Exec("DELETE FROM scores WHERE mode = ?", mode)
	if err != nil {
		return fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMatch(ctx context.Context, e execer, r MatchRecord) (int64, error) {
	var winner sql.NullString
	if r.Winner != "" {
		winner = sql.NullString{String: r.Winner, Valid: true}
	}
	res, err := e.ExecContext(ctx,
		`INSERT INTO match_results
		 (match_id, mode, player1, player2, score1, score2, lines1, lines2, winner, end_reason, ticks, duration_secs, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID,
		r.Mode,
		r.Player1,
		r.Player2,
		r.Score1,
		r.Score2,
		r.Lines1,
		r.Lines2,
		winner,
		r.EndReason,
		int64(r.Ticks), //nolint:gosec // tick counts stay far below 2^63
		r.Duration,
		r.Digest,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// SaveMatch records the result of a match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(r MatchRecord) (int64, error) {
	return insertMatch(context.Background(), s.db, r)
}

const matchColumns = `id, match_id, mode, player1, player2, score1, score2, lines1, lines2,
		        winner, end_reason, ticks, duration_secs, digest, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(sc scanner) (MatchRecord, error) {
	var r MatchRecord
	var createdAt any
	var winner sql.NullString
	var ticks int64

	err := sc.Scan(
		&r.ID,
		&r.MatchID,
		&r.Mode,
		&r.Player1,
		&r.Player2,
		&r.Score1,
		&r.Score2,
		&r.Lines1,
		&r.Lines2,
		&winner,
		&r.EndReason,
		&ticks,
		&r.Duration,
		&r.Digest,
		&createdAt,
	)
	if err != nil {
		return r, err
	}
	if winner.Valid {
		r.Winner = winner.String
	}
	r.Ticks = uint64(ticks) //nolint:gosec // stored from a uint64
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// MatchByID retrieves a match by its match ID. It returns nil, nil when
// no such match exists.
func (s *Store) MatchByID(matchID string) (*MatchRecord, error) {
	r, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+`
		 FROM match_results
		 WHERE match_id = ?`,
		matchID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return &r, nil
}

func (s *Store) queryMatches(query string, args ...any) ([]MatchRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// RecentMatches retrieves the most recent matches, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(
		`SELECT `+matchColumns+`
		 FROM match_results
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
}

// PlayerHistory retrieves the matches a player took part in, newest first.
func (s *Store) PlayerHistory(player string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(
		`SELECT `+matchColumns+`
		 FROM match_results
		 WHERE player1 = ? OR player2 = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		player, player, limit,
	)
}

// SaveMatchResult implements multiplayer.MatchResultSaver. The match and a
// score row per named player are written in one transaction.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = insertMatch(ctx, tx, MatchRecord{
		MatchID:   data.MatchID,
		Mode:      data.Mode,
		Player1:   data.Player1,
		Player2:   data.Player2,
		Score1:    data.Score1,
		Score2:    data.Score2,
		Lines1:    data.Lines1,
		Lines2:    data.Lines2,
		Winner:    data.Winner,
		EndReason: data.EndReason,
		Ticks:     data.Ticks,
		Duration:  data.DurationSecs,
		Digest:    data.Digest,
	})
	if err != nil {
		return err
	}

	players := []struct {
		name         string
		score, lines int
	}{
		{data.Player1, data.Score1, data.Lines1},
		{data.Player2, data.Score2, data.Lines2},
	}
	for _, p := range players {
		if p.name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO scores (mode, player, score, lines) VALUES (?, ?, ?, ?)",
			data.Mode, p.name, p.score, p.lines,
		); err != nil {
			return fmt.Errorf("storage: cannot save score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit match: %w", err)
	}
	return nil
}

// Ensure Store implements MatchResultSaver
var _ multiplayer.MatchResultSaver = (*Store)(nil)

// PlayerStats contains aggregated statistics for a player.
type PlayerStats struct {
	Player     string    `json:"player"`
	Matches    int       `json:"matches"`
	Wins       int       `json:"wins"`
	HighScore  int       `json:"high_score"`
	AvgScore   float64   `json:"avg_score"`
	TotalLines int64     `json:"total_lines"`
	LastPlayed time.Time `json:"last_played"`
}

// GetPlayerStats retrieves aggregated statistics for a player.
func (s *Store) GetPlayerStats(player string) (*PlayerStats, error) {
	stats := &PlayerStats{Player: player}

	var lastPlayed any
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0), COALESCE(SUM(lines), 0), MAX(created_at)
		 FROM scores WHERE player = ?`,
		player,
	).Scan(&stats.Matches, &stats.HighScore, &stats.AvgScore, &stats.TotalLines, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get player stats: %w", err)
	}
	stats.LastPlayed = parseTime(lastPlayed)

	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM match_results WHERE winner = ?",
		player,
	).Scan(&stats.Wins)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot count wins: %w", err)
	}

	return stats, nil
}

// GetAllPlayerStats retrieves statistics for every player with a score.
func (s *Store) GetAllPlayerStats() (map[string]*PlayerStats, error) {
	rows, err := s.db.Query(
		`SELECT s.player, COUNT(*), MAX(s.score), AVG(s.score), SUM(s.lines), MAX(s.created_at),
		        (SELECT COUNT(*) FROM match_results m WHERE m.winner = s.player)
		 FROM scores s
		 GROUP BY s.player`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get all player stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*PlayerStats)
	for rows.Next() {
		var ps PlayerStats
		var lastPlayed any
		if err := rows.Scan(&ps.Player, &ps.Matches, &ps.HighScore, &ps.AvgScore, &ps.TotalLines, &lastPlayed, &ps.Wins); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		ps.LastPlayed = parseTime(lastPlayed)
		stats[ps.Player] = &ps
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}
