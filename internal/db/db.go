package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DB represents the database connection. It stores favorite flags, the
// repositories needed to list favorites offline, and query snapshots.
type DB struct {
	*sql.DB

	// writeMu orders favorite writes with their notifications.
	writeMu sync.Mutex

	mu          sync.Mutex
	subscribers map[int]chan models.FavoriteSet
	nextID      int
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, subscribers: make(map[int]chan models.FavoriteSet)}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repositories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		full_name TEXT NOT NULL,
		owner_login TEXT NOT NULL,
		owner_id INTEGER NOT NULL,
		owner_avatar_url TEXT,
		owner_type TEXT,
		description TEXT,
		language TEXT,
		html_url TEXT,
		default_branch TEXT,
		license TEXT,
		stars INTEGER NOT NULL DEFAULT 0,
		forks INTEGER NOT NULL DEFAULT 0,
		watchers INTEGER NOT NULL DEFAULT 0,
		open_issues INTEGER NOT NULL DEFAULT 0,
		topics TEXT NOT NULL DEFAULT '[]',
		is_fork BOOLEAN NOT NULL DEFAULT 0,
		is_archived BOOLEAN NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		pushed_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS favorites (
		repository_id INTEGER PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS query_snapshots (
		query_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveRepositories upserts repositories so favorites stay readable offline
func (db *DB) SaveRepositories(ctx context.Context, repos []models.Repository) error {
	if len(repos) == 0 {
		return nil
	}

	query := `
	INSERT INTO repositories (
		id, name, full_name, owner_login, owner_id, owner_avatar_url, owner_type,
		description, language, html_url, default_branch, license,
		stars, forks, watchers, open_issues, topics, is_fork, is_archived,
		created_at, updated_at, pushed_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		full_name = excluded.full_name,
		owner_login = excluded.owner_login,
		owner_id = excluded.owner_id,
		owner_avatar_url = excluded.owner_avatar_url,
		owner_type = excluded.owner_type,
		description = excluded.description,
		language = excluded.language,
		html_url = excluded.html_url,
		default_branch = excluded.default_branch,
		license = excluded.license,
		stars = excluded.stars,
		forks = excluded.forks,
		watchers = excluded.watchers,
		open_issues = excluded.open_issues,
		topics = excluded.topics,
		is_fork = excluded.is_fork,
		is_archived = excluded.is_archived,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		pushed_at = excluded.pushed_at
	`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare repository upsert: %w", err)
	}
	defer stmt.Close()

	for _, repo := range repos {
		topics, err := json.Marshal(repo.Topics)
		if err != nil {
			return fmt.Errorf("failed to encode topics of %s: %w", repo.FullName, err)
		}

		_, err = stmt.ExecContext(ctx,
			repo.ID,
			repo.Name,
			repo.FullName,
			repo.Owner.Login,
			repo.Owner.ID,
			repo.Owner.AvatarURL,
			repo.Owner.Type,
			repo.Description,
			repo.Language,
			repo.HTMLURL,
			repo.DefaultBranch,
			repo.License,
			repo.Stars,
			repo.Forks,
			repo.Watchers,
			repo.OpenIssues,
			string(topics),
			repo.IsFork,
			repo.IsArchived,
			unixTime(repo.CreatedAt),
			unixTime(repo.UpdatedAt),
			unixTime(repo.PushedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save repository %s: %w", repo.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repositories: %w", err)
	}
	return nil
}

// FavoriteRepositories lists stored favorite repositories, most recently
// favorited first. Favorites whose repository was never stored are skipped.
func (db *DB) FavoriteRepositories(ctx context.Context) ([]models.Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM favorites f
	JOIN repositories r ON r.id = f.repository_id
	ORDER BY f.created_at DESC, r.full_name ASC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite repositories: %w", err)
	}
	defer rows.Close()

	repos := []models.Repository{}
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read favorite repository: %w", err)
		}
		repos = append(repos, *repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list favorite repositories: %w", err)
	}
	return repos, nil
}

// IsFavorite reports whether a repository is marked as favorite
func (db *DB) IsFavorite(ctx context.Context, id int64) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM favorites WHERE repository_id = ?`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get favorite: %w", err)
	}
	return true, nil
}

// FavoriteIDs returns the IDs of every favorite repository
func (db *DB) FavoriteIDs(ctx context.Context) (models.FavoriteSet, error) {
	rows, err := db.QueryContext(ctx, `SELECT repository_id FROM favorites`)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	set := models.FavoriteSet{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to read favorite: %w", err)
		}
		set[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return set, nil
}

// SetFavorite marks or unmarks a repository as favorite and notifies
// observers with the resulting set.
func (db *DB) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var err error
	if favorite {
		_, err = db.ExecContext(ctx, `
		INSERT INTO favorites (repository_id, created_at)
		VALUES (?, ?)
		ON CONFLICT(repository_id) DO NOTHING
		`, id, time.Now().UnixNano())
	} else {
		_, err = db.ExecContext(ctx, `DELETE FROM favorites WHERE repository_id = ?`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update favorite %d: %w", id, err)
	}

	set, err := db.FavoriteIDs(ctx)
	if err != nil {
		// The write went through; observers catch up on the next change.
		logrus.WithError(err).WithField("repository_id", id).Warn("Failed to reload favorites after update")
		return nil
	}
	db.publish(set)
	return nil
}

// ObserveFavorites streams the favorite set, starting with its current
// value. Slow readers only ever see the newest set. The channel is closed
// once ctx is done.
func (db *DB) ObserveFavorites(ctx context.Context) <-chan models.FavoriteSet {
	ch := make(chan models.FavoriteSet, 1)

	db.mu.Lock()
	id := db.nextID
	db.nextID++
	db.subscribers[id] = ch
	db.mu.Unlock()

	if set, err := db.FavoriteIDs(ctx); err == nil {
		db.offer(id, set)
	} else if ctx.Err() == nil {
		logrus.WithError(err).Warn("Failed to load initial favorites")
	}

	go func() {
		<-ctx.Done()
		db.mu.Lock()
		delete(db.subscribers, id)
		close(ch)
		db.mu.Unlock()
	}()

	return ch
}

func (db *DB) publish(set models.FavoriteSet) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, ch := range db.subscribers {
		db.offerLocked(ch, set)
	}
}

func (db *DB) offer(subscriber int, set models.FavoriteSet) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// The subscriber may already be gone and its channel closed.
	ch, ok := db.subscribers[subscriber]
	if !ok {
		return
	}
	// A set published meanwhile is newer than this one; keep it.
	select {
	case ch <- set:
	default:
	}
}

// offerLocked replaces any unread set with the newer one
func (db *DB) offerLocked(ch chan models.FavoriteSet, set models.FavoriteSet) {
	select {
	case ch <- set:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- set:
		default:
		}
	}
}

// LoadSnapshot decodes the snapshot stored under key into v. It reports
// false when no snapshot exists or it is older than maxAge.
func (db *DB) LoadSnapshot(ctx context.Context, key string, maxAge time.Duration, v any) (bool, error) {
	var payload string
	var fetchedAt int64
	err := db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM query_snapshots WHERE query_key = ?`, key,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if time.Since(time.Unix(0, fetchedAt)) > maxAge {
		return false, nil
	}

	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return true, nil
}

// SaveSnapshot stores v under key, replacing any older snapshot
func (db *DB) SaveSnapshot(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	query := `
	INSERT INTO query_snapshots (query_key, payload, fetched_at)
	VALUES (?, ?, ?)
	ON CONFLICT(query_key) DO UPDATE SET
		payload = excluded.payload,
		fetched_at = excluded.fetched_at
	`

	_, err = db.ExecContext(ctx, query, key, string(payload), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

// PruneSnapshots deletes snapshots older than maxAge
func (db *DB) PruneSnapshots(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixNano()
	res, err := db.ExecContext(ctx, `DELETE FROM query_snapshots WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const repositoryColumns = `r.id, r.name, r.full_name, r.owner_login, r.owner_id,
	r.owner_avatar_url, r.owner_type, r.description, r.language, r.html_url,
	r.default_branch, r.license, r.stars, r.forks, r.watchers, r.open_issues,
	r.topics, r.is_fork, r.is_archived, r.created_at, r.updated_at, r.pushed_at,
	f.repository_id IS NOT NULL`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*models.Repository, error) {
	var repo models.Repository
	var avatarURL, ownerType, description, language, htmlURL, branch, license sql.NullString
	var topics string
	var createdAt, updatedAt, pushedAt int64

	err := row.Scan(
		&repo.ID,
		&repo.Name,
		&repo.FullName,
		&repo.Owner.Login,
		&repo.Owner.ID,
		&avatarURL,
		&ownerType,
		&description,
		&language,
		&htmlURL,
		&branch,
		&license,
		&repo.Stars,
		&repo.Forks,
		&repo.Watchers,
		&repo.OpenIssues,
		&topics,
		&repo.IsFork,
		&repo.IsArchived,
		&createdAt,
		&updatedAt,
		&pushedAt,
		&repo.IsFavorite,
	)
	if err != nil {
		return nil, err
	}

	repo.Owner.AvatarURL = avatarURL.String
	repo.Owner.Type = ownerType.String
	repo.Description = description.String
	repo.Language = language.String
	repo.HTMLURL = htmlURL.String
	repo.DefaultBranch = branch.String
	repo.License = license.String
	repo.CreatedAt = fromUnixTime(createdAt)
	repo.UpdatedAt = fromUnixTime(updatedAt)
	repo.PushedAt = fromUnixTime(pushedAt)

	repo.Topics = []string{}
	if err := json.Unmarshal([]byte(topics), &repo.Topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics of %s: %w", repo.FullName, err)
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}

	return &repo, nil
}

func unixTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
