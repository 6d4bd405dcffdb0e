// Package audit persists an HMAC-signed record per document-processing
// run. Every run, whether clean, partial, or failed, leaves a signed
// trail of what was detected and what was actually masked, queryable via
// `veil report`.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	veilotel "github.com/veilhq/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veilhq/veil/internal/audit")

// Record is the audit record for one document run.
type Record struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Document      string         `json:"document"`
	Pages         int            `json:"pages"`
	SpansDetected int            `json:"spans_detected"`
	RegionsMasked int            `json:"regions_masked"`
	RegionsFailed int            `json:"regions_failed"`
	LocateMisses  int            `json:"locate_misses"`
	KindCounts    map[string]int `json:"kind_counts,omitempty"`
	Signature     string         `json:"signature"`
}

// Store persists signed run records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// NewStore opens (creating if needed) the audit database at dbPath.
func NewStore(dbPath, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		document TEXT NOT NULL,
		record_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save signs and persists a run record, assigning an ID and timestamp when
// unset. The signature covers the record JSON with the Signature field
// empty.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	ctx, span := tracer.Start(ctx, "audit.save",
		trace.WithAttributes(
			attribute.String("audit.run_id", rec.ID),
			attribute.String("audit.document", rec.Document),
		))
	defer span.End()

	rec.Signature = ""
	unsigned, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	signature, err := s.signer.Sign(unsigned)
	if err != nil {
		return fmt.Errorf("signing run record: %w", err)
	}
	rec.Signature = signature

	signed, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling signed record: %w", err)
	}

	query := `INSERT INTO runs (id, timestamp, document, record_json, signature)
	          VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.Document, string(signed), signature); err != nil {
		return fmt.Errorf("storing run record: %w", err)
	}
	return nil
}

// Get retrieves a run record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "audit.get",
		trace.WithAttributes(attribute.String("audit.run_id", id)))
	defer span.End()

	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM runs WHERE id = ?`, id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling run record: %w", err)
	}
	return &rec, nil
}

// List returns run records, newest first, optionally filtered by document.
func (s *Store) List(ctx context.Context, document string, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "audit.list",
		trace.WithAttributes(attribute.String("audit.document", document)))
	defer span.End()

	query := `SELECT record_json FROM runs WHERE 1=1`
	args := []interface{}{}
	if document != "" {
		query += ` AND document = ?`
		args = append(args, document)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling run record: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// Verify checks the integrity of a run record against its signature.
func (s *Store) Verify(rec *Record) (bool, error) {
	signature := rec.Signature
	rec.Signature = ""
	unsigned, err := json.Marshal(rec)
	rec.Signature = signature
	if err != nil {
		return false, fmt.Errorf("marshaling run record: %w", err)
	}
	return s.signer.Verify(unsigned, signature), nil
}
