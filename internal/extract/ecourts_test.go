package extract_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/extract"
)

const ecourtsFormHTML = `<html><body>
<form>
<img id="captcha_image" src="/securimage/securimage_show.php?x=1">
<input type="text" name="captcha">
</form>
</body></html>`

const ecourtsRowsHTML = `<table>
<tr>
  <td>MFA/100/2025</td>
  <td>LAKSHMI DEVI VS KSRTC</td>
  <td>05-01-2025</td>
  <td><a href="/orders/100.pdf">view</a></td>
</tr>
</table>`

func TestEcourtsParseForm(t *testing.T) {
	t.Parallel()
	e := &extract.EcourtsExtractor{}
	base, _ := url.Parse("https://hcservices.example.in/search")

	form, err := e.ParseForm([]byte(ecourtsFormHTML), base)
	require.NoError(t, err)
	assert.Equal(t, "https://hcservices.example.in/securimage/securimage_show.php?x=1", form.CaptchaImageURL)
	assert.Equal(t, []string{"captcha"}, form.CaptchaFields)
	assert.Empty(t, form.Token)
}

func TestEcourtsParseResultsPlainHTML(t *testing.T) {
	t.Parallel()
	e := &extract.EcourtsExtractor{}
	base, _ := url.Parse("https://hcservices.example.in/search")

	data, err := e.ParseResults([]byte(ecourtsRowsHTML), base)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "MFA/100/2025", data.Rows[0].CaseNo)
	assert.Equal(t, "LAKSHMI DEVI VS KSRTC", data.Rows[0].Party)
	assert.Equal(t, "05-01-2025", data.Rows[0].Date)
	assert.Equal(t, "https://hcservices.example.in/orders/100.pdf", data.Rows[0].PDFLink)
}

func TestEcourtsParseResultsJSONWrapped(t *testing.T) {
	t.Parallel()
	e := &extract.EcourtsExtractor{}
	base, _ := url.Parse("https://hcservices.example.in/search")

	payload, err := json.Marshal(map[string]string{"data": ecourtsRowsHTML})
	require.NoError(t, err)

	data, err := e.ParseResults(payload, base)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "MFA/100/2025", data.Rows[0].CaseNo)
}

func TestEcourtsParseResultsInvalidCaptcha(t *testing.T) {
	t.Parallel()
	e := &extract.EcourtsExtractor{}

	data, err := e.ParseResults([]byte(`{"errormsg":"Invalid Captcha"}`), nil)
	require.NoError(t, err)
	assert.True(t, data.InvalidCaptcha)
	assert.Empty(t, data.Rows)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"delhi", "phhc", "ecourts"} {
		e, err := extract.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, e.Name())
	}
	_, err := extract.Lookup("unknown")
	require.Error(t, err)
}
