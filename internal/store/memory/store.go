// Package memory provides an in-process Store used by tests and the dry-run
// configuration. Semantics mirror the Postgres store exactly, including the
// link-union dedup and the monotonic archived flag.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/1009rishit/Case-data/internal/court"
)

// Store keeps courts and case records in memory behind a single mutex.
type Store struct {
	mu      sync.Mutex
	courts  []*court.CourtRef
	records []*court.CaseRecord
	nextID  int64
}

var _ court.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{nextID: 1}
}

// EnsureCourt returns the court matching (name, bench), creating it if
// needed. A court previously stored without a bench is upgraded in place
// when the same name later arrives with one.
func (s *Store) EnsureCourt(_ context.Context, name, bench, _, _ string) (court.CourtRef, error) {
	if name == "" {
		return court.CourtRef{}, fmt.Errorf("court name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.courts {
		if c.Name == name && c.Bench == bench {
			return *c, nil
		}
	}
	if bench != "" {
		for _, c := range s.courts {
			if c.Name == name && c.Bench == "" {
				c.Bench = bench
				return *c, nil
			}
		}
	}
	ref := &court.CourtRef{ID: s.nextID, Name: name, Bench: bench}
	s.nextID++
	s.courts = append(s.courts, ref)
	return *ref, nil
}

// UpsertCase reconciles one row. A new case identifier inserts a record, a
// known identifier with a new link appends to its link set, and an exact
// repeat is a no-op.
func (s *Store) UpsertCase(_ context.Context, c court.CourtRef, caseID, date, party, link string) (court.UpsertOutcome, error) {
	if caseID == "" {
		return court.OutcomeDuplicate, fmt.Errorf("case id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.CourtID != c.ID || rec.CaseID != caseID {
			continue
		}
		for _, l := range rec.DocumentLinks {
			if l == link {
				return court.OutcomeDuplicate, nil
			}
		}
		rec.DocumentLinks = append(rec.DocumentLinks, link)
		rec.Archived = false
		rec.UpdatedAt = time.Now()
		return court.OutcomeLinkAdded, nil
	}

	rec := &court.CaseRecord{
		ID:            s.nextID,
		CourtID:       c.ID,
		CaseID:        caseID,
		FilingDate:    date,
		PartyText:     party,
		DocumentLinks: []string{link},
		UpdatedAt:     time.Now(),
	}
	s.nextID++
	s.records = append(s.records, rec)
	return court.OutcomeInserted, nil
}

// ListPending expands every unarchived record of the court, one entry per
// document link, in insertion order.
func (s *Store) ListPending(_ context.Context, c court.CourtRef) ([]court.PendingDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []court.PendingDocument
	for _, rec := range s.records {
		if rec.CourtID != c.ID || rec.Archived {
			continue
		}
		for i, link := range rec.DocumentLinks {
			out = append(out, court.PendingDocument{
				RecordID:    rec.ID,
				CaseID:      rec.CaseID,
				Link:        link,
				LinkOrdinal: i,
				LinkCount:   len(rec.DocumentLinks),
			})
		}
	}
	return out, nil
}

// MarkArchived flips the record's archived flag.
func (s *Store) MarkArchived(_ context.Context, recordID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == recordID {
			rec.Archived = true
			rec.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("record %d not found", recordID)
}

// Close is a no-op.
func (s *Store) Close() {}

// Records returns a snapshot of all case records, for tests.
func (s *Store) Records() []court.CaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]court.CaseRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		cp.DocumentLinks = append([]string(nil), rec.DocumentLinks...)
		out = append(out, cp)
	}
	return out
}
