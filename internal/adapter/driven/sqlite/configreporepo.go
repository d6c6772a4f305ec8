package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConfigRepoStore = (*ConfigRepoRepo)(nil)

// ConfigRepoRepo is the SQLite implementation of the ConfigRepoStore port
// interface. Materials and plugin configuration are stored as JSON through
// the same wire codec the admin API uses, so the snake_case key table is the
// single source of truth for both boundaries.
type ConfigRepoRepo struct {
	db *DB
}

// NewConfigRepoRepo creates a new ConfigRepoRepo backed by the given DB.
func NewConfigRepoRepo(db *DB) *ConfigRepoRepo {
	return &ConfigRepoRepo{db: db}
}

// Add inserts a new config repo. Returns ErrConfigRepoAlreadyExists if a
// repo with the same id already exists.
func (r *ConfigRepoRepo) Add(ctx context.Context, repo model.ConfigRepo) error {
	const query = `INSERT INTO config_repos (id, plugin_id, material, configuration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	material, configuration, err := encodeRepo(repo)
	if err != nil {
		return fmt.Errorf("add config repo %s: %w", repo.ID, err)
	}

	now := time.Now().UTC()
	createdAt := repo.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := repo.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = r.db.Writer.ExecContext(ctx, query, repo.ID, repo.PluginID, material, configuration, createdAt, updatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("add config repo %s: %w", repo.ID, driven.ErrConfigRepoAlreadyExists)
		}
		return fmt.Errorf("add config repo %s: %w", repo.ID, err)
	}

	return nil
}

// Update replaces the plugin id, material, and configuration of an existing
// config repo. Returns ErrConfigRepoNotFound if the repo does not exist.
// Last-parse state is left untouched; the parse loop owns it.
func (r *ConfigRepoRepo) Update(ctx context.Context, repo model.ConfigRepo) error {
	const query = `UPDATE config_repos SET plugin_id = ?, material = ?, configuration = ?, updated_at = ? WHERE id = ?`

	material, configuration, err := encodeRepo(repo)
	if err != nil {
		return fmt.Errorf("update config repo %s: %w", repo.ID, err)
	}

	result, err := r.db.Writer.ExecContext(ctx, query, repo.PluginID, material, configuration, time.Now().UTC(), repo.ID)
	if err != nil {
		return fmt.Errorf("update config repo %s: %w", repo.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update config repo %s: %w", repo.ID, driven.ErrConfigRepoNotFound)
	}

	return nil
}

// Remove deletes a config repo by id. Returns ErrConfigRepoNotFound if the
// repo does not exist. Foreign key cascade removes its last-parse row too.
func (r *ConfigRepoRepo) Remove(ctx context.Context, id string) error {
	const query = `DELETE FROM config_repos WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove config repo %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove config repo %s: %w", id, driven.ErrConfigRepoNotFound)
	}

	return nil
}

const selectConfigRepo = `SELECT r.id, r.plugin_id, r.material, r.configuration, r.created_at, r.updated_at,
	lp.revision, lp.success, lp.error, lp.parsed_at
	FROM config_repos r
	LEFT JOIN last_parses lp ON lp.repo_id = r.id`

// GetByID retrieves a config repo by id. Returns nil, nil if it does not exist.
func (r *ConfigRepoRepo) GetByID(ctx context.Context, id string) (*model.ConfigRepo, error) {
	query := selectConfigRepo + ` WHERE r.id = ?`

	repo, err := scanConfigRepo(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get config repo %s: %w", id, err)
	}

	return repo, nil
}

// ListAll returns all config repos ordered by id.
func (r *ConfigRepoRepo) ListAll(ctx context.Context) ([]model.ConfigRepo, error) {
	query := selectConfigRepo + ` ORDER BY r.id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list config repos: %w", err)
	}
	defer rows.Close()

	var repos []model.ConfigRepo
	for rows.Next() {
		repo, err := scanConfigRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config repo: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config repos: %w", err)
	}

	return repos, nil
}

// SetLastParse records the outcome of a parse attempt for the repo, replacing
// any previous outcome. Returns ErrConfigRepoNotFound for an unknown repo id
// (surfaced via the foreign key constraint).
func (r *ConfigRepoRepo) SetLastParse(ctx context.Context, id string, lastParse model.LastParse) error {
	const query = `INSERT OR REPLACE INTO last_parses (repo_id, revision, success, error, parsed_at)
		VALUES (?, ?, ?, ?, ?)`

	parsedAt := lastParse.ParsedAt
	if parsedAt.IsZero() {
		parsedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, id, lastParse.Revision, lastParse.Success, lastParse.Error, parsedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
			return fmt.Errorf("set last parse for %s: %w", id, driven.ErrConfigRepoNotFound)
		}
		return fmt.Errorf("set last parse for %s: %w", id, err)
	}

	return nil
}

// encodeRepo serializes the material and configuration columns.
func encodeRepo(repo model.ConfigRepo) (material, configuration []byte, err error) {
	material, err = json.Marshal(repo.Material)
	if err != nil {
		return nil, nil, fmt.Errorf("encode material: %w", err)
	}

	props := repo.Configuration
	if props == nil {
		props = []model.ConfigurationProperty{}
	}
	configuration, err = json.Marshal(props)
	if err != nil {
		return nil, nil, fmt.Errorf("encode configuration: %w", err)
	}

	return material, configuration, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConfigRepo(s scanner) (*model.ConfigRepo, error) {
	var repo model.ConfigRepo
	var material, configuration string
	var createdAt, updatedAt string
	var revision, parseError, parsedAt sql.NullString
	var success sql.NullBool

	err := s.Scan(&repo.ID, &repo.PluginID, &material, &configuration, &createdAt, &updatedAt,
		&revision, &success, &parseError, &parsedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(material), &repo.Material); err != nil {
		return nil, fmt.Errorf("decode material: %w", err)
	}
	if err := json.Unmarshal([]byte(configuration), &repo.Configuration); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	repo.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	repo.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	// A missing last_parses row means the repo has never been parsed.
	if revision.Valid {
		lastParse := model.LastParse{
			Revision: revision.String,
			Success:  success.Bool,
			Error:    parseError.String,
		}
		lastParse.ParsedAt, err = parseTime(parsedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse parsed_at: %w", err)
		}
		repo.LastParse = &lastParse
	}

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
