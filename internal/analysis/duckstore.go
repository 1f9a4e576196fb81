// Package analysis persists media analysis records.
package analysis

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/marcboeker/go-duckdb"
	"github.com/mediayear/backend/internal/models"
)

// Store is the persistence surface used by the upload and results handlers.
type Store interface {
	// Insert records every analysis in one transaction and fills in their IDs.
	Insert(ctx context.Context, analyses []*models.MediaAnalysis) error
	// ListRecent returns up to limit analyses, newest first. limit <= 0 means all.
	ListRecent(ctx context.Context, limit int) ([]*models.MediaAnalysis, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Options tune the DuckDB connection.
type Options struct {
	Threads     int
	MemoryLimit string
	Logger      *slog.Logger
}

// DuckStore keeps analyses in a DuckDB file. An empty path opens an in-memory database.
type DuckStore struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS media_analysis_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS media_analysis (
		id              BIGINT PRIMARY KEY DEFAULT nextval('media_analysis_id_seq'),
		filename        VARCHAR NOT NULL,
		upload_date     TIMESTAMP NOT NULL,
		analysis_result VARCHAR,
		media_type      VARCHAR NOT NULL,
		processed       BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_media_analysis_upload_date ON media_analysis(upload_date)`,
}

// OpenDuckStore opens (creating if needed) the analysis database at dbPath.
func OpenDuckStore(dbPath string, opts Options) (*DuckStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pragmas := []string{"PRAGMA enable_progress_bar=false"}
	if opts.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
	}
	if opts.MemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warn("duckdb pragma failed", "pragma", pragma, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create DuckDB connector", goerr.V("path", dbPath))
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to create schema", goerr.V("path", dbPath))
		}
	}

	logger.Info("analysis store opened", "path", displayPath(dbPath))
	return &DuckStore{db: db, dbPath: dbPath, logger: logger}, nil
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}

// Insert implements Store.
func (ds *DuckStore) Insert(ctx context.Context, analyses []*models.MediaAnalysis) error {
	if len(analyses) == 0 {
		return nil
	}

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, a := range analyses {
		raw, err := a.ResultJSON()
		if err != nil {
			return goerr.Wrap(err, "failed to encode analysis result", goerr.V("filename", a.Filename))
		}
		if a.UploadDate.IsZero() {
			a.UploadDate = time.Now()
		}

		var result sql.NullString
		if raw != "" {
			result = sql.NullString{String: raw, Valid: true}
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO media_analysis (filename, upload_date, analysis_result, media_type, processed)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			a.Filename, a.UploadDate.UTC(), result, string(a.MediaType), a.Processed)
		if err := row.Scan(&a.ID); err != nil {
			return goerr.Wrap(err, "failed to insert analysis", goerr.V("filename", a.Filename))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit analyses", goerr.V("count", len(analyses)))
	}

	ds.logger.Debug("analyses stored", "count", len(analyses))
	return nil
}

// ListRecent implements Store.
func (ds *DuckStore) ListRecent(ctx context.Context, limit int) ([]*models.MediaAnalysis, error) {
	query := `
		SELECT id, filename, upload_date, analysis_result, media_type, processed
		FROM media_analysis
		ORDER BY upload_date DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query analyses")
	}
	defer rows.Close()

	var out []*models.MediaAnalysis
	for rows.Next() {
		var (
			a         models.MediaAnalysis
			result    sql.NullString
			mediaType string
		)
		if err := rows.Scan(&a.ID, &a.Filename, &a.UploadDate, &result, &mediaType, &a.Processed); err != nil {
			return nil, goerr.Wrap(err, "failed to scan analysis")
		}
		a.MediaType = models.MediaType(mediaType)
		if err := a.SetResultJSON(result.String); err != nil {
			ds.logger.Warn("discarding undecodable analysis result", "id", a.ID, "error", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate analyses")
	}
	return out, nil
}

// Count implements Store.
func (ds *DuckStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := ds.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_analysis").Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count analyses")
	}
	return n, nil
}

// Close implements Store.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	err := ds.db.Close()
	ds.db = nil
	return err
}
