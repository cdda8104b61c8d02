package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/storage/models"
	"github.com/docchat/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_name);
	CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.DocumentRecord) error {
	query := `
		INSERT INTO documents (id, source_name, mime_type, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chunk_count = excluded.chunk_count
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.SourceName,
		doc.MimeType,
		doc.ChunkCount,
		doc.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document recorded",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", doc.ChunkCount),
	)
	return nil
}

func (c *Client) GetDocument(id string) (*models.DocumentRecord, error) {
	query := `SELECT id, source_name, mime_type, chunk_count, created_at FROM documents WHERE id = ?`

	var doc models.DocumentRecord
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.SourceName,
		&doc.MimeType,
		&doc.ChunkCount,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	return &doc, nil
}

func (c *Client) ListDocuments(limit int) ([]models.DocumentRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, source_name, mime_type, chunk_count, created_at FROM documents ORDER BY created_at DESC LIMIT ?`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord
	for rows.Next() {
		var doc models.DocumentRecord
		var createdAt int64
		if err := rows.Scan(&doc.ID, &doc.SourceName, &doc.MimeType, &doc.ChunkCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.CreatedAt = time.Unix(createdAt, 0)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}
