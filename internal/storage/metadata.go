package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no summary matches an id
var ErrNotFound = errors.New("summary not found")

// Record is one finished summary as archived by the service
type Record struct {
	SummaryID   string          `json:"summaryId"`
	Title       string          `json:"title"`
	Platform    string          `json:"platform"`
	SourceURL   string          `json:"sourceUrl"`
	SummaryType string          `json:"summaryType"`
	WordCount   int             `json:"wordCount"`
	Duration    float64         `json:"duration"`
	Document    json.RawMessage `json:"summary,omitempty"`
	Transcript  string          `json:"transcript,omitempty"`
	LocalPath   string          `json:"localPath,omitempty"`
	GDriveURL   string          `json:"gdriveUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DisplayName is used for file names
func (r *Record) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.SummaryID
}

// ExportJSON renders the record as written to disk and Drive
func (r *Record) ExportJSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return b, nil
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens the database and creates the schema
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		summary_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		platform TEXT NOT NULL,
		source_url TEXT NOT NULL,
		summary_type TEXT NOT NULL,
		word_count INTEGER,
		duration REAL,
		document TEXT NOT NULL,
		gdrive_url TEXT,
		local_path TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries(created_at);
	CREATE INDEX IF NOT EXISTS idx_summaries_type ON summaries(summary_type);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveSummary inserts or replaces the row for rec.SummaryID
func (mdb *MetadataDB) SaveSummary(rec *Record) error {
	query := `
	INSERT INTO summaries (summary_id, title, platform, source_url, summary_type, word_count, duration, document, gdrive_url, local_path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(summary_id) DO UPDATE SET
		title = excluded.title,
		platform = excluded.platform,
		source_url = excluded.source_url,
		summary_type = excluded.summary_type,
		word_count = excluded.word_count,
		duration = excluded.duration,
		document = excluded.document,
		gdrive_url = excluded.gdrive_url,
		local_path = excluded.local_path
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	doc := string(rec.Document)
	if doc == "" {
		doc = "{}"
	}

	_, err := mdb.db.Exec(query, rec.SummaryID, rec.Title, rec.Platform, rec.SourceURL, rec.SummaryType,
		rec.WordCount, rec.Duration, doc, rec.GDriveURL, rec.LocalPath, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save summary metadata: %w", err)
	}

	return nil
}

const selectColumns = `summary_id, title, platform, source_url, summary_type, word_count, duration, document, gdrive_url, local_path, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec           Record
		doc           string
		gdrive, local sql.NullString
		wordCount     sql.NullInt64
		duration      sql.NullFloat64
	)
	if err := row.Scan(&rec.SummaryID, &rec.Title, &rec.Platform, &rec.SourceURL, &rec.SummaryType,
		&wordCount, &duration, &doc, &gdrive, &local, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.WordCount = int(wordCount.Int64)
	rec.Duration = duration.Float64
	rec.Document = json.RawMessage(doc)
	rec.GDriveURL = gdrive.String
	rec.LocalPath = local.String
	return &rec, nil
}

// GetSummary retrieves one summary by id
func (mdb *MetadataDB) GetSummary(summaryID string) (*Record, error) {
	row := mdb.db.QueryRow(`SELECT `+selectColumns+` FROM summaries WHERE summary_id = ?`, summaryID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return rec, nil
}

// ListSummaries returns the newest summaries without their documents
func (mdb *MetadataDB) ListSummaries(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := mdb.db.Query(`SELECT `+selectColumns+` FROM summaries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		rec.Document = nil
		summaries = append(summaries, *rec)
	}

	return summaries, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
