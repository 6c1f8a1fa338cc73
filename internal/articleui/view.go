package articleui

// ListView describes the article list region. Exactly one of Error, Empty
// or Rows is meaningful after a completed load.
type ListView struct {
	Loading    bool       `json:"loading,omitempty"`
	Error      string     `json:"error,omitempty"`
	Empty      string     `json:"empty,omitempty"`
	Rows       []Row      `json:"rows"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	ActiveTag  string     `json:"activeTag,omitempty"`
	PageInfo   string     `json:"pageInfo"`
	ShowPrev   bool       `json:"showPrev"`
	ShowNext   bool       `json:"showNext"`
	Pagination Pagination `json:"pagination"`
}

// Row is one article line of the list table.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Published   string `json:"published"`
	Tags        []Chip `json:"tags"`
	ViewEnabled bool   `json:"viewEnabled"`
	EditEnabled bool   `json:"editEnabled"`
}

// Chip is a clickable tag control. Tag is the filter value it applies; the
// synthetic "All" chip carries an empty Tag.
type Chip struct {
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	Active bool   `json:"active"`
}

// LabelBar is the filter bar built from the label catalog.
type LabelBar struct {
	Loading   bool   `json:"loading,omitempty"`
	Error     string `json:"error,omitempty"`
	Items     []Chip `json:"items"`
	ShowClear bool   `json:"showClear"`
}

// ArticleModal is the read-only article dialog.
type ArticleModal struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Published string `json:"published"`
	Tags      string `json:"tags"`
	Body      string `json:"body"`
}

// Meta is the one-line byline shown under the dialog title.
func (m ArticleModal) Meta() string {
	meta := "author: " + m.Author + " published: " + m.Published
	if m.Tags != "" {
		meta += " • tags: " + m.Tags
	}

	return meta
}

// EditModal is the edit dialog with its label checklist.
type EditModal struct {
	ID        string      `json:"id"`
	Heading   string      `json:"heading"`
	Meta      string      `json:"meta"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	TagInput  string      `json:"tagInput"`
	Checklist []CheckItem `json:"checklist"`
}

// CheckItem is one entry of the edit checklist.
type CheckItem struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// EditForm is what the user submits from the edit dialog.
type EditForm struct {
	Title    string
	Body     string
	TagInput string
	Checked  []string
}
