// Package postgres provides the Postgres-backed court and case store.
//
// Schema the store expects:
//
//	CREATE TABLE high_courts (
//		id         BIGSERIAL PRIMARY KEY,
//		court_name TEXT NOT NULL,
//		bench      TEXT NOT NULL DEFAULT '',
//		base_link  TEXT NOT NULL DEFAULT '',
//		folder     TEXT NOT NULL DEFAULT '',
//		UNIQUE (court_name, bench)
//	);
//
//	CREATE TABLE case_metadata (
//		id             BIGSERIAL PRIMARY KEY,
//		court_id       BIGINT NOT NULL REFERENCES high_courts(id),
//		case_id        TEXT NOT NULL,
//		filing_date    TEXT NOT NULL DEFAULT '',
//		party_text     TEXT NOT NULL DEFAULT '',
//		document_links JSONB NOT NULL DEFAULT '[]',
//		archived       BOOLEAN NOT NULL DEFAULT FALSE,
//		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//		UNIQUE (court_id, case_id)
//	);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/1009rishit/Case-data/internal/court"
)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists courts and case records in Postgres.
type Store struct {
	pool pgxPool
}

var _ court.Store = (*Store)(nil)

// New connects a pool and returns the store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureCourt gets or creates the (name, bench) court row. A row stored
// without a bench is upgraded in place when the name later arrives with one.
func (s *Store) EnsureCourt(ctx context.Context, name, bench, baseLink, folder string) (court.CourtRef, error) {
	if name == "" {
		return court.CourtRef{}, fmt.Errorf("court name is required")
	}
	ref := court.CourtRef{Name: name, Bench: bench}

	err := s.pool.QueryRow(ctx,
		`SELECT id FROM high_courts WHERE court_name = $1 AND bench = $2`,
		name, bench,
	).Scan(&ref.ID)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return court.CourtRef{}, fmt.Errorf("lookup court: %w", err)
	}

	if bench != "" {
		tag, uerr := s.pool.Exec(ctx,
			`UPDATE high_courts SET bench = $1 WHERE court_name = $2 AND bench = ''`,
			bench, name,
		)
		if uerr != nil {
			return court.CourtRef{}, fmt.Errorf("attach bench: %w", uerr)
		}
		if tag.RowsAffected() > 0 {
			if err := s.pool.QueryRow(ctx,
				`SELECT id FROM high_courts WHERE court_name = $1 AND bench = $2`,
				name, bench,
			).Scan(&ref.ID); err != nil {
				return court.CourtRef{}, fmt.Errorf("reload court: %w", err)
			}
			return ref, nil
		}
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO high_courts (court_name, bench, base_link, folder)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (court_name, bench) DO UPDATE SET base_link = EXCLUDED.base_link
		 RETURNING id`,
		name, bench, baseLink, folder,
	).Scan(&ref.ID)
	if err != nil {
		return court.CourtRef{}, fmt.Errorf("insert court: %w", err)
	}
	return ref, nil
}

// UpsertCase reconciles one harvested row inside a transaction. The existing
// record row is locked FOR UPDATE so concurrent calls for the same case
// serialize on the link set instead of clobbering each other.
func (s *Store) UpsertCase(ctx context.Context, c court.CourtRef, caseID, date, party, link string) (court.UpsertOutcome, error) {
	if caseID == "" {
		return court.OutcomeDuplicate, fmt.Errorf("case id is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return court.OutcomeDuplicate, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		recordID  int64
		linksJSON []byte
	)
	err = tx.QueryRow(ctx,
		`SELECT id, document_links FROM case_metadata
		 WHERE court_id = $1 AND case_id = $2
		 FOR UPDATE`,
		c.ID, caseID,
	).Scan(&recordID, &linksJSON)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		links, merr := json.Marshal([]string{link})
		if merr != nil {
			return court.OutcomeDuplicate, fmt.Errorf("marshal links: %w", merr)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO case_metadata (court_id, case_id, filing_date, party_text, document_links)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.ID, caseID, date, party, links,
		); err != nil {
			return court.OutcomeDuplicate, fmt.Errorf("insert case: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return court.OutcomeDuplicate, fmt.Errorf("commit upsert: %w", err)
		}
		return court.OutcomeInserted, nil

	case err != nil:
		return court.OutcomeDuplicate, fmt.Errorf("lock case: %w", err)
	}

	var links []string
	if err := json.Unmarshal(linksJSON, &links); err != nil {
		return court.OutcomeDuplicate, fmt.Errorf("decode links for case %q: %w", caseID, err)
	}
	for _, l := range links {
		if l == link {
			if err := tx.Commit(ctx); err != nil {
				return court.OutcomeDuplicate, fmt.Errorf("commit upsert: %w", err)
			}
			return court.OutcomeDuplicate, nil
		}
	}

	links = append(links, link)
	merged, err := json.Marshal(links)
	if err != nil {
		return court.OutcomeDuplicate, fmt.Errorf("marshal links: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE case_metadata
		 SET document_links = $1, archived = FALSE, updated_at = NOW()
		 WHERE id = $2`,
		merged, recordID,
	); err != nil {
		return court.OutcomeDuplicate, fmt.Errorf("append link: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return court.OutcomeDuplicate, fmt.Errorf("commit upsert: %w", err)
	}
	return court.OutcomeLinkAdded, nil
}

// ListPending expands every unarchived record of the court into one entry
// per document link, ordered by record id.
func (s *Store) ListPending(ctx context.Context, c court.CourtRef) ([]court.PendingDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, document_links FROM case_metadata
		 WHERE court_id = $1 AND archived = FALSE
		 ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []court.PendingDocument
	for rows.Next() {
		var (
			recordID  int64
			caseID    string
			linksJSON []byte
		)
		if err := rows.Scan(&recordID, &caseID, &linksJSON); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		var links []string
		if err := json.Unmarshal(linksJSON, &links); err != nil {
			return nil, fmt.Errorf("decode links for case %q: %w", caseID, err)
		}
		for i, link := range links {
			out = append(out, court.PendingDocument{
				RecordID:    recordID,
				CaseID:      caseID,
				Link:        link,
				LinkOrdinal: i,
				LinkCount:   len(links),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return out, nil
}

// MarkArchived flips the record's archived flag.
func (s *Store) MarkArchived(ctx context.Context, recordID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE case_metadata SET archived = TRUE, updated_at = NOW() WHERE id = $1`,
		recordID,
	)
	if err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d not found", recordID)
	}
	return nil
}
