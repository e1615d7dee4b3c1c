package court

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Store persists courts and case records with idempotent upsert semantics.
type Store interface {
	// EnsureCourt is an idempotent get-or-create keyed by (name, bench).
	// A court created without a bench may later gain one; it is never
	// deleted.
	EnsureCourt(ctx context.Context, name, bench, baseLink, folder string) (CourtRef, error)

	// UpsertCase reconciles one harvested row against prior state. It must
	// be race-free for concurrent calls with the same (court, caseID) and
	// must never create a second record for an existing case identifier.
	UpsertCase(ctx context.Context, court CourtRef, caseID, date, party, link string) (UpsertOutcome, error)

	// ListPending expands every unarchived record of the court into one
	// tuple per document link.
	ListPending(ctx context.Context, court CourtRef) ([]PendingDocument, error)

	// MarkArchived flips a record's archived flag. The flip is monotonic.
	MarkArchived(ctx context.Context, recordID int64) error

	Close()
}

// BlobStore writes artifacts to durable storage and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Solver resolves an image captcha to its text.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// Page is one HTTP response fetched through a crawl session.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Session is a cookie-scoped HTTP client owned by exactly one crawl run.
// Sessions are never shared between concurrently running targets.
type Session interface {
	Get(ctx context.Context, url string) (Page, error)
	PostForm(ctx context.Context, url string, form map[string]string) (Page, error)

	// Cookies and SetCookies expose the jar for hand-off to the retrieval
	// pipeline when a site gates documents behind the search session.
	Cookies(url string) []*http.Cookie
	SetCookies(url string, cookies []*http.Cookie) error
}

// RowSink consumes normalized rows as the crawl machine emits them. Returning
// an error aborts the crawl.
type RowSink func(Row) error

// Publisher pushes archival events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests used for fallback artifact names.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}
