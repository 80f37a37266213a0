package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/risk"
)

const documentColumns = `id, owner_id, filename, file_size, content_type, file_path, status,
	text_content, vector, risk_score, pii_stats, failure_reason, created_at, updated_at`

// SQLStorage implements Storage on SQLite, PostgreSQL or MySQL.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database named by driver and dsn and creates the schema.
// For SQLite, dsn is a file path whose parent directories are created.
func Open(driver, dsn string) (*SQLStorage, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DialectSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	case DialectMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DialectSQLite {
		// one writer at a time avoids SQLITE_BUSY between pipeline workers
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	return &SQLStorage{db: db, dialect: d}, nil
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	return Open(DialectSQLite, dbPath)
}

// Driver returns the database/sql driver name in use.
func (s *SQLStorage) Driver() string { return s.dialect.name }

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

// CreateDocument inserts doc. Status defaults to processing; timestamps are set here.
func (s *SQLStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("create document: empty id")
	}
	if doc.Status == "" {
		doc.Status = models.StatusProcessing
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := s.exec(ctx,
		`INSERT INTO documents (id, owner_id, filename, file_size, content_type, file_path, status, risk_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		doc.ID, doc.OwnerID, doc.Filename, doc.FileSize, doc.ContentType, doc.FilePath, string(doc.Status),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *SQLStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByOwner returns an owner's documents, newest first.
func (s *SQLStorage) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT `+documentColumns+` FROM documents WHERE owner_id = ? ORDER BY created_at DESC, id`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CompleteDocument stores the processing result in a single update.
func (s *SQLStorage) CompleteDocument(ctx context.Context, id string, res models.ProcessingResult) error {
	vector, err := json.Marshal(res.Vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}
	stats, err := json.Marshal(res.PiiStats)
	if err != nil {
		return fmt.Errorf("marshal pii stats: %w", err)
	}
	result, err := s.exec(ctx,
		`UPDATE documents SET status = ?, text_content = ?, vector = ?, risk_score = ?, pii_stats = ?,
		 failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.StatusCompleted), res.TextContent, string(vector), res.RiskScore, string(stats),
		time.Now().UTC(), id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	return s.checkTransition(ctx, result, id)
}

// FailDocument marks a processing document failed and clears any partial result.
func (s *SQLStorage) FailDocument(ctx context.Context, id, reason string) error {
	result, err := s.exec(ctx,
		`UPDATE documents SET status = ?, text_content = NULL, vector = NULL, risk_score = 0, pii_stats = NULL,
		 failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.StatusFailed), reason, time.Now().UTC(), id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("fail document: %w", err)
	}
	return s.checkTransition(ctx, result, id)
}

// FailProcessing marks every document still processing as failed. It is meant
// for startup, when no worker can still own them.
func (s *SQLStorage) FailProcessing(ctx context.Context, reason string) (int64, error) {
	result, err := s.exec(ctx,
		`UPDATE documents SET status = ?, text_content = NULL, vector = NULL, risk_score = 0, pii_stats = NULL,
		 failure_reason = ?, updated_at = ?
		 WHERE status = ?`,
		string(models.StatusFailed), reason, time.Now().UTC(), string(models.StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing documents: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStorage) checkTransition(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrNotProcessing, id)
}

// DeleteDocument removes a document by ID.
func (s *SQLStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountByStatus returns the number of documents in each status. Every status is present.
func (s *SQLStorage) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	counts := map[models.Status]int64{
		models.StatusPending:    0,
		models.StatusProcessing: 0,
		models.StatusCompleted:  0,
		models.StatusFailed:     0,
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	var status string
	var text, vector, stats, failureReason sql.NullString
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.FileSize, &doc.ContentType, &doc.FilePath, &status,
		&text, &vector, &doc.RiskScore, &stats, &failureReason, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Status = models.Status(status)
	doc.TextContent = text.String
	doc.FailureReason = failureReason.String
	if vector.Valid && vector.String != "" && vector.String != "null" {
		if err := json.Unmarshal([]byte(vector.String), &doc.Vector); err != nil {
			return nil, fmt.Errorf("unmarshal vector: %w", err)
		}
	}
	if stats.Valid && stats.String != "" && stats.String != "null" {
		if err := json.Unmarshal([]byte(stats.String), &doc.PiiStats); err != nil {
			return nil, fmt.Errorf("unmarshal pii stats: %w", err)
		}
	}
	doc.RiskLevel = risk.Level(doc.RiskScore)
	return &doc, nil
}
