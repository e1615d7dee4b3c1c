// Package court defines the core types shared across subsystems.
package court

import "time"

// CourtRef identifies a persisted court. Bench is empty for single-bench
// courts.
type CourtRef struct {
	ID    int64
	Name  string
	Bench string
}

// Row is the normalized shape every site extractor produces. A case with
// several documents arrives as repeated rows sharing the same CaseNo.
type Row struct {
	Court   string `json:"court,omitempty"`
	Bench   string `json:"bench,omitempty"`
	CaseNo  string `json:"case_no"`
	Date    string `json:"date"`
	Party   string `json:"party"`
	PDFLink string `json:"pdf_link"`
}

// CaseRecord is the persisted judgment metadata row.
type CaseRecord struct {
	ID            int64     `json:"id"`
	CourtID       int64     `json:"court_id"`
	CaseID        string    `json:"case_id"`
	FilingDate    string    `json:"filing_date"`
	PartyText     string    `json:"party_text"`
	DocumentLinks []string  `json:"document_links"`
	Archived      bool      `json:"archived"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertOutcome reports what UpsertCase did with an incoming row.
type UpsertOutcome int

// Upsert outcomes.
const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeLinkAdded
	OutcomeDuplicate
)

// String implements fmt.Stringer for metric labels and logs.
func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeLinkAdded:
		return "link_added"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// PendingDocument is one not-yet-archived (record, link) tuple. LinkOrdinal
// is the position of the link within its record's link set; records with a
// single link always carry ordinal 0.
type PendingDocument struct {
	RecordID    int64
	CaseID      string
	Link        string
	LinkOrdinal int
	LinkCount   int
}

// TargetMode selects how a target's result space is enumerated.
type TargetMode string

// Enumeration modes. Paged targets report a total count and serve fixed-size
// pages; datecell targets are driven by a case-type x day cross-product.
const (
	ModePaged    TargetMode = "paged"
	ModeDateCell TargetMode = "datecell"
)

// Target describes one crawlable portal, scoped to a single bench. Courts
// with several benches appear as several targets sharing a Name.
type Target struct {
	Name         string            `mapstructure:"name"`
	Bench        string            `mapstructure:"bench"`
	Tag          string            `mapstructure:"tag"`
	BaseURL      string            `mapstructure:"base_url"`
	SearchPath   string            `mapstructure:"search_path"`
	Extractor    string            `mapstructure:"extractor"`
	Mode         TargetMode        `mapstructure:"mode"`
	PageSize     int               `mapstructure:"page_size"`
	LookbackDays int               `mapstructure:"lookback_days"`
	DateFormat   string            `mapstructure:"date_format"`
	CaseTypes    []string          `mapstructure:"case_types"`
	FormFields   map[string]string `mapstructure:"form_fields"`
	// DocumentGate marks sites that put a second captcha between the result
	// row and the actual document.
	DocumentGate bool `mapstructure:"document_gate"`
}

// SearchURL joins the base URL and search path.
func (t Target) SearchURL() string {
	if t.SearchPath == "" {
		return t.BaseURL
	}
	base := t.BaseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	path := t.SearchPath
	if len(path) > 0 && path[0] != '/' {
		path = "/" + path
	}
	return base + path
}

// RunReport summarizes one target's run for the exit/alert surface.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	Bench      string    `json:"bench,omitempty"`
	Rows       int       `json:"rows"`
	Inserted   int       `json:"inserted"`
	LinksAdded int       `json:"links_added"`
	Duplicates int       `json:"duplicates"`
	Archived   int       `json:"archived"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
