package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/ports"
)

const (
	articlesTable = "articles"
	rejectedTable = "rejected"

	// keeps IN (...) lists well below the SQLite variable limit
	lookupChunk = 500
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		published_at TEXT,
		source_name TEXT,
		source_type TEXT,
		url TEXT,
		author TEXT,
		full_text TEXT,
		category TEXT,
		civil_engineering_area TEXT,
		ai_technique TEXT,
		application_stage TEXT,
		keywords TEXT,
		summary TEXT,
		processed_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS rejected (
		id TEXT PRIMARY KEY,
		title TEXT,
		rejection_reason TEXT,
		processed_at TEXT
	)`,
}

// applied by the driver to every pooled connection
const pragmas = "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

var articleColumns = []string{
	"id", "title", "published_at", "source_name", "source_type", "url", "author",
	"full_text", "category", "civil_engineering_area", "ai_technique",
	"application_stage", "keywords", "summary", "processed_at",
}

// SQLiteRepository persists classified articles and rejections.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository wires an already opened database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open creates the parent directory, opens the database and ensures the schema.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare database: %w", err)
		}
	}
	return NewSQLiteRepository(db), nil
}

func dsn(path string) string {
	return "file:" + path + "?" + pragmas
}

// Close releases the underlying database.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// AlreadyProcessed returns the ids present in either the accepted or the
// rejected table.
func (r *SQLiteRepository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += lookupChunk {
		chunk := ids[start:min(start+lookupChunk, len(ids))]
		for _, table := range []string{articlesTable, rejectedTable} {
			query, args, err := sq.Select("id").From(table).Where(sq.Eq{"id": chunk}).ToSql()
			if err != nil {
				return nil, fmt.Errorf("build processed query: %w", err)
			}
			if err := r.collectIDs(ctx, query, args, result); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (r *SQLiteRepository) collectIDs(ctx context.Context, query string, args []any, into map[string]bool) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan id: %w", err)
		}
		into[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration: %w", err)
	}
	return nil
}

// SaveAccepted upserts an accepted article with its classification.
func (r *SQLiteRepository) SaveAccepted(ctx context.Context, article domain.ClassifiedArticle) error {
	if r.db == nil {
		return nil
	}

	keywords := article.Classification.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	encoded, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	a, c := article.Article, article.Classification
	query, args, err := sq.Insert(articlesTable).
		Options("OR REPLACE").
		Columns(articleColumns...).
		Values(
			a.ID, a.Title, a.PublishedAt, a.SourceName, string(a.SourceType), a.URL, a.Author,
			a.FullText, c.Category, c.CivilEngineeringArea, c.AITechnique,
			c.ApplicationStage, string(encoded), c.Summary, c.ProcessedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %s: %w", a.ID, err)
	}
	return nil
}

// SaveRejected upserts a rejection record.
func (r *SQLiteRepository) SaveRejected(ctx context.Context, rejection domain.Rejection) error {
	if r.db == nil {
		return nil
	}

	query, args, err := sq.Insert(rejectedTable).
		Options("OR REPLACE").
		Columns("id", "title", "rejection_reason", "processed_at").
		Values(rejection.ID, rejection.Title, rejection.Reason, rejection.ProcessedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert rejection %s: %w", rejection.ID, err)
	}
	return nil
}

// ListAccepted returns every accepted article ordered by id.
func (r *SQLiteRepository) ListAccepted(ctx context.Context) ([]domain.ClassifiedArticle, error) {
	if r.db == nil {
		return nil, nil
	}

	cols := make([]string, len(articleColumns))
	for i, c := range articleColumns {
		cols[i] = "COALESCE(" + c + ", '')"
	}
	query, args, err := sq.Select(cols...).From(articlesTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []domain.ClassifiedArticle
	for rows.Next() {
		var (
			ca         domain.ClassifiedArticle
			sourceType string
			keywords   string
		)
		a, c := &ca.Article, &ca.Classification
		if err := rows.Scan(
			&a.ID, &a.Title, &a.PublishedAt, &a.SourceName, &sourceType, &a.URL, &a.Author,
			&a.FullText, &c.Category, &c.CivilEngineeringArea, &c.AITechnique,
			&c.ApplicationStage, &keywords, &c.Summary, &c.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.SourceType = domain.SourceType(sourceType)
		c.IsRelevant = true
		if keywords != "" {
			if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
				return nil, fmt.Errorf("decode keywords of %s: %w", a.ID, err)
			}
		}
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// ListRejected returns every rejection ordered by id.
func (r *SQLiteRepository) ListRejected(ctx context.Context) ([]domain.Rejection, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := sq.Select(
		"id", "COALESCE(title, '')", "COALESCE(rejection_reason, '')", "COALESCE(processed_at, '')",
	).From(rejectedTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rejected: %w", err)
	}
	defer rows.Close()

	var out []domain.Rejection
	for rows.Next() {
		var rej domain.Rejection
		if err := rows.Scan(&rej.ID, &rej.Title, &rej.Reason, &rej.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan rejection: %w", err)
		}
		out = append(out, rej)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
