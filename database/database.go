// Package database is the relational-store collaborator: it enumerates
// candidate images for ingestion and writes match results back to reports.
//
// Table and column names are quoted because the schema is created by EF Core
// and is case-sensitive in Postgres.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/facesearch/ingest"
	"github.com/hupe1980/facesearch/search"
)

const listCandidatesSQL = `
	SELECT wi."OriginalUrl", wi."LargeUrl"
	FROM "WantedImages" wi
	INNER JOIN "WantedPersons" wp ON wi."WantedPersonId" = wp."Id"
	WHERE wi."OriginalUrl" IS NOT NULL AND wi."OriginalUrl" != ''
	  AND wi."LargeUrl" IS NOT NULL AND wi."LargeUrl" != ''
	LIMIT 200
`

const insertMatchSQL = `
	INSERT INTO "PersonMatchResults" ("LocationWantedPersonId", "ImageUrl", "Confidence")
	VALUES ($1, $2, $3)
`

// Status 1 is "Completed" in the report-service enum.
const markReportCompletedSQL = `
	UPDATE "LocationWantedPersons" SET "Status" = 1 WHERE "Id" = $1
`

// Store wraps a pgx connection pool. The pool is shared by the queue worker
// and the ingestion pipeline, which run concurrently.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres using a pgx connection string or URL.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListCandidates returns the current page of candidate image URL pairs.
func (s *Store) ListCandidates(ctx context.Context) ([]ingest.Candidate, error) {
	rows, err := s.pool.Query(ctx, listCandidatesSQL)
	if err != nil {
		return nil, fmt.Errorf("database: list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []ingest.Candidate
	for rows.Next() {
		var primary, fallback string
		if err := rows.Scan(&primary, &fallback); err != nil {
			return nil, fmt.Errorf("database: scan candidate: %w", err)
		}
		if primary == "" {
			continue
		}
		candidates = append(candidates, ingest.Candidate{
			PrimaryURL:  primary,
			FallbackURL: fallback,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: list candidates: %w", err)
	}
	return candidates, nil
}

// SaveReportResults inserts the matches for a report and marks the report
// completed, in one transaction.
func (s *Store) SaveReportResults(ctx context.Context, reportID string, matches []search.Match) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, m := range matches {
		b.Queue(insertMatchSQL, reportID, m.URL, m.Confidence)
	}
	b.Queue(markReportCompletedSQL, reportID)

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("database: save results for report %s: %w", reportID, err)
	}
	return tx.Commit(ctx)
}
