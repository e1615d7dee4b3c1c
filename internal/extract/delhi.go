package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/1009rishit/Case-data/internal/court"
)

// DelhiExtractor parses the Delhi High Court date-wise judgment search.
// The portal prints the captcha code into the page itself, so no solver
// round-trip is needed; the CSRF token and page cursor ride the form.
type DelhiExtractor struct{}

var showingRe = regexp.MustCompile(`Showing \d+ to \d+ of (\d+)`)

// Name implements RowExtractor.
func (e *DelhiExtractor) Name() string { return "delhi" }

// ParseForm pulls the CSRF token and the inline captcha code.
func (e *DelhiExtractor) ParseForm(body []byte, _ *url.URL) (FormInfo, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FormInfo{}, err
	}
	token, _ := doc.Find(`input[name="_token"]`).Attr("value")
	return FormInfo{
		TokenField:    "_token",
		Token:         token,
		CaptchaInline: doc.Find("span#captcha-code").Text(),
		CaptchaFields: []string{"randomid", "captchaInput"},
	}, nil
}

// ParseResults walks the judgment table and reads the total-count marker.
func (e *DelhiExtractor) ParseResults(body []byte, base *url.URL) (PageData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageData{}, err
	}

	data := PageData{Total: -1}
	doc.Find("#registrarsTableValue tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header
			return
		}
		cols := row.Find("td")
		if cols.Length() < 4 {
			return
		}
		dateCell := cols.Eq(2).Find("a[href]").First()
		href, _ := dateCell.Attr("href")
		data.Rows = append(data.Rows, court.Row{
			CaseNo:  cols.Eq(1).Text(),
			Date:    dateCell.Text(),
			Party:   cols.Eq(3).Text(),
			PDFLink: absURL(base, href),
		}.Normalize())
	})

	if m := showingRe.FindSubmatch(body); m != nil {
		if total, err := strconv.Atoi(string(m[1])); err == nil {
			data.Total = total
		}
	}
	return data, nil
}
