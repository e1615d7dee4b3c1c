package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GateForm describes the interstitial challenge some portals place between a
// result row and the document itself: a small form with its own captcha that
// must be solved before the PDF is served.
type GateForm struct {
	// Action is the resolved URL the form posts to.
	Action string
	// CaptchaImageURL is the resolved challenge image URL.
	CaptchaImageURL string
	// CaptchaField is the input name carrying the solved text.
	CaptchaField string
	// Hidden holds the form's hidden inputs, submitted unchanged.
	Hidden map[string]string
}

// ParseGateForm locates the document gate form in an HTML page. It finds the
// first form containing a captcha image and collects its posting surface.
func ParseGateForm(body []byte, base *url.URL) (GateForm, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return GateForm{}, fmt.Errorf("parse gate page: %w", err)
	}

	var gate GateForm
	found := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		img := form.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			src, _ := s.Attr("src")
			return strings.Contains(strings.ToLower(id), "captcha") ||
				strings.Contains(strings.ToLower(src), "captcha")
		})
		if img.Length() == 0 {
			return true
		}

		action, _ := form.Attr("action")
		gate.Action = absURL(base, action)
		if src, ok := img.First().Attr("src"); ok {
			gate.CaptchaImageURL = absURL(base, src)
		}
		gate.Hidden = make(map[string]string)
		form.Find("input").Each(func(_ int, in *goquery.Selection) {
			name, ok := in.Attr("name")
			if !ok || name == "" {
				return
			}
			typ, _ := in.Attr("type")
			val, _ := in.Attr("value")
			switch strings.ToLower(typ) {
			case "hidden", "submit":
				gate.Hidden[name] = val
			case "text", "":
				if gate.CaptchaField == "" {
					gate.CaptchaField = name
				}
			}
		})
		if gate.CaptchaField == "" {
			gate.CaptchaField = "vercode"
		}
		found = true
		return false
	})
	if !found {
		return GateForm{}, fmt.Errorf("no captcha gate form in page")
	}
	if gate.Action == "" {
		return GateForm{}, fmt.Errorf("gate form has no action")
	}
	return gate, nil
}
