// Package pdftext derives a plain-text rendition of court judgment PDFs.
//
// Extraction is two-stage: the PDF's embedded text layer is read first, and
// documents that are pure scans (no text layer, as older judgments usually
// are) fall back to an external OCR pass. Both stages are best-effort; the
// caller decides what a failed derivation means.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Recognizer turns a scanned PDF into text. Implementations may shell out.
type Recognizer interface {
	Recognize(ctx context.Context, pdfPath string) (string, error)
}

// Deriver produces the text rendition for a judgment PDF.
type Deriver struct {
	recognizer Recognizer
	logger     *zap.Logger
}

// New builds a Deriver. recognizer may be nil, in which case scanned
// documents yield an empty derivation.
func New(recognizer Recognizer, logger *zap.Logger) *Deriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deriver{recognizer: recognizer, logger: logger}
}

// Derive returns the text for the PDF at path. The embedded text layer wins
// when present; otherwise the recognizer runs. An empty string with nil
// error means the document genuinely produced no text.
func (d *Deriver) Derive(ctx context.Context, path string) (string, error) {
	text, err := TextLayer(path)
	if err != nil {
		d.logger.Warn("text layer extraction failed",
			zap.String("path", filepath.Base(path)),
			zap.Error(err),
		)
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if d.recognizer == nil {
		return "", nil
	}
	out, err := d.recognizer.Recognize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return out, nil
}

// TextLayer extracts the embedded text layer of a PDF file.
func TextLayer(path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if len(body) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return buf.String(), nil
}

// CommandRecognizer rasterizes pages with pdftoppm and recognizes them with
// tesseract. Both binaries must be on PATH.
type CommandRecognizer struct {
	// DPI for rasterization; 200 when zero.
	DPI int
}

// Recognize implements Recognizer.
func (r CommandRecognizer) Recognize(ctx context.Context, pdfPath string) (string, error) {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 200
	}
	tmpDir, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr workspace: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	raster := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", fmt.Sprintf("%d", dpi), pdfPath, prefix,
	)
	if out, err := raster.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", fmt.Errorf("list pages: %w", err)
	}

	var sb strings.Builder
	for _, page := range pages {
		recognize := exec.CommandContext(ctx, "tesseract", page, "stdout")
		out, err := recognize.Output()
		if err != nil {
			return "", fmt.Errorf("tesseract %s: %w", filepath.Base(page), err)
		}
		sb.Write(out)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
