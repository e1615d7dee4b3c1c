package extract_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/extract"
)

const delhiFormHTML = `<html><body>
<form method="POST">
<input type="hidden" name="_token" value="tok-abc123">
<span id="captcha-code">5X2K9</span>
<input type="text" name="captchaInput">
</form>
</body></html>`

const delhiResultsHTML = `<html><body>
<table id="registrarsTableValue">
<tr><th>S.No.</th><th>Case No</th><th>Date</th><th>Party</th></tr>
<tr>
  <td>1</td>
  <td>W.P.(C) 1234/2025</td>
  <td><a href="/app/showlogo/abc.pdf">01-01-2025 (pdf)</a></td>
  <td>RAM KUMAR VS STATE</td>
</tr>
<tr>
  <td>2</td>
  <td>CRL.A. 9/2025</td>
  <td><a href="https://cdn.example.in/xyz.pdf">02-01-2025</a></td>
  <td>STATE VS SHYAM</td>
</tr>
</table>
<div>Showing 1 to 2 of 120 entries</div>
</body></html>`

func TestDelhiParseForm(t *testing.T) {
	t.Parallel()
	e := &extract.DelhiExtractor{}

	form, err := e.ParseForm([]byte(delhiFormHTML), nil)
	require.NoError(t, err)
	assert.Equal(t, "_token", form.TokenField)
	assert.Equal(t, "tok-abc123", form.Token)
	assert.Equal(t, "5X2K9", form.CaptchaInline)
	assert.Empty(t, form.CaptchaImageURL)
	assert.Equal(t, []string{"randomid", "captchaInput"}, form.CaptchaFields)
}

func TestDelhiParseResults(t *testing.T) {
	t.Parallel()
	e := &extract.DelhiExtractor{}
	base, _ := url.Parse("https://dhc.example.in/search")

	data, err := e.ParseResults([]byte(delhiResultsHTML), base)
	require.NoError(t, err)
	assert.Equal(t, 120, data.Total)
	require.Len(t, data.Rows, 2)

	assert.Equal(t, "W.P.(C) 1234/2025", data.Rows[0].CaseNo)
	assert.Equal(t, "01-01-2025", data.Rows[0].Date)
	assert.Equal(t, "RAM KUMAR VS STATE", data.Rows[0].Party)
	assert.Equal(t, "https://dhc.example.in/app/showlogo/abc.pdf", data.Rows[0].PDFLink)
	assert.Equal(t, "https://cdn.example.in/xyz.pdf", data.Rows[1].PDFLink)
}

func TestDelhiParseResultsNoTotal(t *testing.T) {
	t.Parallel()
	e := &extract.DelhiExtractor{}

	data, err := e.ParseResults([]byte("<html><body>no table</body></html>"), nil)
	require.NoError(t, err)
	assert.Equal(t, -1, data.Total)
	assert.Empty(t, data.Rows)
}
