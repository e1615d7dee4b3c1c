package pdftext_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/pdftext"
)

type stubRecognizer struct {
	text  string
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.text, s.err
}

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, body, 0o644))
	return path
}

func TestTextLayerRejectsNonPDF(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "page.pdf", []byte("<html>not a pdf</html>"))

	_, err := pdftext.TextLayer(path)
	assert.Error(t, err)
}

func TestTextLayerMissingFile(t *testing.T) {
	t.Parallel()

	_, err := pdftext.TextLayer(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}

func TestTextLayerEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "empty.pdf", nil)

	text, err := pdftext.TextLayer(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestDeriveFallsBackToRecognizer(t *testing.T) {
	t.Parallel()

	rec := &stubRecognizer{text: "IN THE HIGH COURT"}
	deriver := pdftext.New(rec, nil)

	path := writeFile(t, "scan.pdf", nil)

	text, err := deriver.Derive(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "IN THE HIGH COURT", text)
	assert.Equal(t, 1, rec.calls)
}

func TestDeriveNilRecognizerYieldsEmpty(t *testing.T) {
	t.Parallel()

	deriver := pdftext.New(nil, nil)

	path := writeFile(t, "scan.pdf", nil)

	text, err := deriver.Derive(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestDeriveWrapsRecognizerError(t *testing.T) {
	t.Parallel()

	rec := &stubRecognizer{err: errors.New("binary missing")}
	deriver := pdftext.New(rec, nil)

	path := writeFile(t, "scan.pdf", nil)

	_, err := deriver.Derive(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr:")
}
