// Package archive retrieves pending court documents and uploads them, with a
// derived text rendition, to durable object storage.
//
// The ordering contract is strict: a record is marked archived only after
// every one of its documents has been uploaded. An upload failure leaves the
// record pending so the next run retries it. The text rendition is
// best-effort and never blocks the flag.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/metrics"
	"github.com/1009rishit/Case-data/internal/pdftext"
)

// Config controls the archival pass.
type Config struct {
	// Workers is the download/upload concurrency per target.
	Workers int
	// WorkDir is scratch space for downloaded PDFs awaiting OCR.
	WorkDir string
	// Topic, when set, receives one archival event per uploaded document.
	Topic string
}

// Event is the payload published after a successful document upload.
type Event struct {
	Court      string    `json:"court"`
	Bench      string    `json:"bench,omitempty"`
	CaseID     string    `json:"case_id"`
	Link       string    `json:"link"`
	PDFURI     string    `json:"pdf_uri"`
	TextURI    string    `json:"text_uri,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Result summarizes one archival pass.
type Result struct {
	Archived int
	Failed   int
}

// Pipeline drains a court's pending documents into the blob store.
type Pipeline struct {
	store     court.Store
	blobs     court.BlobStore
	deriver   *pdftext.Deriver
	hasher    court.Hasher
	clock     court.Clock
	publisher court.Publisher
	cfg       Config
	logger    *zap.Logger
}

// New builds a Pipeline. publisher may be nil to disable events.
func New(
	store court.Store,
	blobs court.BlobStore,
	deriver *pdftext.Deriver,
	hasher court.Hasher,
	clock court.Clock,
	publisher court.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     store,
		blobs:     blobs,
		deriver:   deriver,
		hasher:    hasher,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// recordJob carries every pending link of one record, so the archived flag
// decision stays with a single worker.
type recordJob struct {
	recordID int64
	caseID   string
	docs     []court.PendingDocument
}

// Run archives everything pending for the target's court.
func (p *Pipeline) Run(ctx context.Context, target court.Target, ref court.CourtRef, fetch DocumentFetcher) (Result, error) {
	pending, err := p.store.ListPending(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("list pending documents: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	// Group per record, preserving store order.
	var jobs []recordJob
	index := make(map[int64]int)
	for _, doc := range pending {
		i, ok := index[doc.RecordID]
		if !ok {
			i = len(jobs)
			index[doc.RecordID] = i
			jobs = append(jobs, recordJob{recordID: doc.RecordID, caseID: doc.CaseID})
		}
		jobs[i].docs = append(jobs[i].docs, doc)
	}

	jobCh := make(chan recordJob)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res Result
	)
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				archived, failed := p.archiveRecord(ctx, target, job, fetch)
				mu.Lock()
				res.Archived += archived
				res.Failed += failed
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return res, ctx.Err()
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()
	return res, nil
}

// archiveRecord uploads every document of one record; the archived flag
// flips only when all of them made it.
func (p *Pipeline) archiveRecord(ctx context.Context, target court.Target, job recordJob, fetch DocumentFetcher) (archived, failed int) {
	allOK := true
	for _, doc := range job.docs {
		if err := p.archiveDocument(ctx, target, doc, fetch); err != nil {
			p.logger.Warn("document archival failed",
				zap.String("case_id", doc.CaseID),
				zap.String("link", doc.Link),
				zap.Error(err),
			)
			metrics.ObserveArchiveFailure(target.Name)
			failed++
			allOK = false
			continue
		}
		archived++
	}
	if !allOK {
		return archived, failed
	}
	if err := p.store.MarkArchived(ctx, job.recordID); err != nil {
		p.logger.Error("archived flag update failed",
			zap.Int64("record_id", job.recordID),
			zap.Error(err),
		)
	}
	return archived, failed
}

func (p *Pipeline) archiveDocument(ctx context.Context, target court.Target, doc court.PendingDocument, fetch DocumentFetcher) error {
	start := p.clock.Now()

	body, err := fetch.Fetch(ctx, doc.Link)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty document body")
	}

	name, err := p.artifactName(doc)
	if err != nil {
		return err
	}
	objDir := p.objectDir(target, start)

	// Stage locally for text derivation, then clean up.
	localPath := filepath.Join(p.cfg.WorkDir, name+".pdf")
	if err := os.WriteFile(localPath, body, 0o600); err != nil {
		return fmt.Errorf("stage pdf: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warn("scratch cleanup failed", zap.String("path", localPath), zap.Error(rmErr))
		}
	}()

	var text string
	if p.deriver != nil {
		text, err = p.deriver.Derive(ctx, localPath)
		if err != nil {
			p.logger.Warn("text derivation failed",
				zap.String("case_id", doc.CaseID),
				zap.Error(err),
			)
			text = ""
		}
	}

	pdfURI, err := p.blobs.PutObject(ctx, path.Join(objDir, name+".pdf"), "application/pdf", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload pdf: %w", err)
	}

	textURI := ""
	if text != "" {
		textURI, err = p.blobs.PutObject(ctx, path.Join(objDir, name+".txt"), "text/plain; charset=utf-8", strings.NewReader(text))
		if err != nil {
			p.logger.Warn("text upload failed",
				zap.String("case_id", doc.CaseID),
				zap.Error(err),
			)
			textURI = ""
		}
	}

	metrics.ObserveArchived(target.Name, p.clock.Now().Sub(start))
	p.publish(ctx, target, doc, pdfURI, textURI)
	return nil
}

// artifactName derives a filesystem-safe object name from the case id, with
// an ordinal suffix when a record carries several documents. Case ids that
// sanitize down to nothing fall back to a digest of the link.
func (p *Pipeline) artifactName(doc court.PendingDocument) (string, error) {
	name := sanitize(doc.CaseID)
	if name == "" || name == "." {
		digest, err := p.hasher.Hash([]byte(doc.Link))
		if err != nil {
			return "", fmt.Errorf("hash link: %w", err)
		}
		name = digest[:16]
	}
	if doc.LinkCount > 1 {
		name = fmt.Sprintf("%s_%d", name, doc.LinkOrdinal)
	}
	return name, nil
}

func (p *Pipeline) objectDir(target court.Target, now time.Time) string {
	parts := []string{
		now.Format("2006"),
		now.Format("01"),
		now.Format("02"),
		target.Tag,
	}
	if target.Bench != "" {
		parts = append(parts, sanitize(target.Bench))
	}
	return path.Join(parts...)
}

func (p *Pipeline) publish(ctx context.Context, target court.Target, doc court.PendingDocument, pdfURI, textURI string) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	event := Event{
		Court:      target.Name,
		Bench:      target.Bench,
		CaseID:     doc.CaseID,
		Link:       doc.Link,
		PDFURI:     pdfURI,
		TextURI:    textURI,
		ArchivedAt: p.clock.Now(),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, event); err != nil {
		p.logger.Warn("archival event publish failed",
			zap.String("case_id", doc.CaseID),
			zap.Error(err),
		)
	}
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
