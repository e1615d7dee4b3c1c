package extract_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/extract"
)

const phhcResultsHTML = `<html><body>
<table id="tables11">
<tr><th>Sr.</th><th>Case</th><th>Party</th><th>Order</th></tr>
<tr>
  <td>1</td>
  <td><a href="#"><b>CWP-100-2025</b></a></td>
  <td>GURPREET SINGH VS STATE OF PUNJAB</td>
  <td>
    <a onclick="window.open('/home.php?search_param=display&amp;f=1.pdf')">View Order</a>
    <a OnClick="window.open('/home.php?search_param=display&amp;f=2.pdf')">View Order</a>
  </td>
</tr>
<tr>
  <td>2</td>
  <td><a href="#"><b>CRM-M-2-2025</b></a></td>
  <td>HARJIT KAUR VS STATE OF HARYANA</td>
  <td><a onclick="alert('no order')">Details</a></td>
</tr>
</table>
<a href="?page=2" title="Next">Next &gt;</a>
</body></html>`

func TestPHHCParseResults(t *testing.T) {
	t.Parallel()
	e := &extract.PHHCExtractor{}
	base, _ := url.Parse("https://phhc.example.in/results.php")

	data, err := e.ParseResults([]byte(phhcResultsHTML), base)
	require.NoError(t, err)

	// One row per View Order anchor; the second table row has no order
	// links at all and is skipped.
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "CWP-100-2025", data.Rows[0].CaseNo)
	assert.Equal(t, "CWP-100-2025", data.Rows[1].CaseNo)
	assert.Equal(t, "GURPREET SINGH VS STATE OF PUNJAB", data.Rows[0].Party)
	assert.Equal(t, "https://phhc.example.in/home.php?search_param=display&f=1.pdf", data.Rows[0].PDFLink)
	assert.Equal(t, "https://phhc.example.in/home.php?search_param=display&f=2.pdf", data.Rows[1].PDFLink)

	assert.True(t, data.HasNext)
	assert.Equal(t, "https://phhc.example.in/results.php?page=2", data.NextURL)
}

func TestPHHCParseResultsTooBroad(t *testing.T) {
	t.Parallel()
	e := &extract.PHHCExtractor{}

	data, err := e.ParseResults([]byte("<html><body>Please refine your query</body></html>"), nil)
	require.NoError(t, err)
	assert.True(t, data.TooBroad)
	assert.Empty(t, data.Rows)
}

func TestPHHCParseFormHasNoChallenge(t *testing.T) {
	t.Parallel()
	e := &extract.PHHCExtractor{}

	form, err := e.ParseForm(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, form.Token)
	assert.Empty(t, form.CaptchaImageURL)
	assert.Empty(t, form.CaptchaInline)
}
