package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/1009rishit/Case-data/internal/court"
)

// PHHCExtractor parses the Punjab & Haryana High Court free-text judgment
// search. The search form itself carries no captcha (documents are gated
// separately), results live in table#tables11, and document links hide in
// window.open handlers on "View Order" anchors.
type PHHCExtractor struct{}

var windowOpenRe = regexp.MustCompile(`window\.open\('([^']+)'\)`)

// Name implements RowExtractor.
func (e *PHHCExtractor) Name() string { return "phhc" }

// ParseForm reports no token and no search captcha.
func (e *PHHCExtractor) ParseForm(_ []byte, _ *url.URL) (FormInfo, error) {
	return FormInfo{}, nil
}

// ParseResults walks the results table. A case with several "View Order"
// anchors yields one row per order link.
func (e *PHHCExtractor) ParseResults(body []byte, base *url.URL) (PageData, error) {
	if strings.Contains(strings.ToLower(string(body)), "refine your query") {
		return PageData{Total: -1, TooBroad: true}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageData{}, err
	}

	data := PageData{Total: -1}
	doc.Find("table#tables11 tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		var links []string
		row.Find("a").Each(func(_ int, a *goquery.Selection) {
			if strings.TrimSpace(a.Text()) != "View Order" {
				return
			}
			onclick, ok := a.Attr("onclick")
			if !ok {
				onclick, _ = a.Attr("OnClick")
			}
			if m := windowOpenRe.FindStringSubmatch(onclick); m != nil {
				if resolved := absURL(base, m[1]); resolved != "" {
					links = append(links, resolved)
				}
			}
		})
		if len(links) == 0 {
			return
		}

		caseNo := cells.Eq(1).Find("a b").First().Text()
		party := cells.Eq(2).Text()
		for _, link := range links {
			data.Rows = append(data.Rows, court.Row{
				CaseNo:  caseNo,
				Party:   party,
				PDFLink: link,
			}.Normalize())
		}
	})

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if title, _ := a.Attr("title"); title == "Next" || strings.Contains(a.Text(), "Next") {
			data.HasNext = true
			data.NextURL = absURL(base, href)
			return false
		}
		return true
	})
	return data, nil
}
