// Package extract holds the per-site result-page parsers.
//
// Each target portal renders search results differently; the crawl machine
// stays generic by delegating page interpretation to a RowExtractor chosen
// by target configuration.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/1009rishit/Case-data/internal/court"
)

// FormInfo is what a search form page yields: the anti-forgery token (if
// any), where the captcha lives, and which form fields the solved text must
// be written into.
type FormInfo struct {
	TokenField string
	Token      string

	// CaptchaImageURL points at a challenge image to fetch over the same
	// session and hand to the solver.
	CaptchaImageURL string
	// CaptchaInline carries the code for portals that print it straight
	// into the page; no solver round-trip is needed then.
	CaptchaInline string
	// CaptchaFields are the form field names the captcha text is submitted
	// under.
	CaptchaFields []string
}

// PageData is one parsed results page.
type PageData struct {
	Rows []court.Row
	// Total is the portal-reported record count, or -1 when the portal
	// does not report one.
	Total int
	// HasNext reports a next-page control for portals without a total;
	// NextURL carries the control's resolved link when it is an anchor.
	HasNext bool
	NextURL string
	// InvalidCaptcha marks a results page rejecting the submitted code.
	InvalidCaptcha bool
	// TooBroad marks a "refine your query" diagnostic; treated as zero
	// rows, not a failure.
	TooBroad bool
}

// RowExtractor turns a portal's pages into normalized data.
type RowExtractor interface {
	Name() string
	ParseForm(body []byte, base *url.URL) (FormInfo, error)
	ParseResults(body []byte, base *url.URL) (PageData, error)
}

// Lookup resolves an extractor by its configured name.
func Lookup(name string) (RowExtractor, error) {
	switch strings.ToLower(name) {
	case "delhi":
		return &DelhiExtractor{}, nil
	case "phhc":
		return &PHHCExtractor{}, nil
	case "ecourts":
		return &EcourtsExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// absURL resolves href against the page URL, mirroring response.urljoin.
func absURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
