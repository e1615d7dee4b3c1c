package extract

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/1009rishit/Case-data/internal/court"
)

// EcourtsExtractor parses the hcservices.ecourts.gov.in order-date search
// used by several high courts (Karnataka among them). The search result
// sometimes arrives as JSON wrapping HTML row fragments and sometimes as
// plain HTML; both shapes are handled.
type EcourtsExtractor struct{}

// Name implements RowExtractor.
func (e *EcourtsExtractor) Name() string { return "ecourts" }

// ParseForm locates the captcha image; the portal uses no form token.
func (e *EcourtsExtractor) ParseForm(body []byte, base *url.URL) (FormInfo, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FormInfo{}, err
	}
	src, _ := doc.Find("#captcha_image").Attr("src")
	return FormInfo{
		CaptchaImageURL: absURL(base, src),
		CaptchaFields:   []string{"captcha"},
	}, nil
}

// ParseResults handles both response shapes and flags captcha rejections.
func (e *EcourtsExtractor) ParseResults(body []byte, base *url.URL) (PageData, error) {
	if strings.Contains(strings.ToLower(string(body)), "invalid captcha") {
		return PageData{Total: -1, InvalidCaptcha: true}, nil
	}

	html := body
	var wrapped struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != "" {
		html = []byte(wrapped.Data)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return PageData{}, err
	}

	data := PageData{Total: -1}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 4 {
			return
		}
		href, _ := row.Find("a[href]").First().Attr("href")
		data.Rows = append(data.Rows, court.Row{
			CaseNo:  cols.Eq(0).Text(),
			Party:   cols.Eq(1).Text(),
			Date:    cols.Eq(2).Text(),
			PDFLink: absURL(base, href),
		}.Normalize())
	})
	return data, nil
}
