// Package listview searches, sorts and paginates an in-memory grant list.
package listview

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"grant-dashboard/models"
)

type SortField string

const (
	SortNone        SortField = ""
	SortTitle       SortField = "title"
	SortDepartment  SortField = "department"
	SortSource      SortField = "source"
	SortBudget      SortField = "budget"
	SortDeadline    SortField = "deadline"
	SortPublication SortField = "publication"
	SortConfidence  SortField = "confidence"
)

var sortFields = []SortField{SortTitle, SortDepartment, SortSource, SortBudget, SortDeadline, SortPublication, SortConfidence}

// ParseSortField validates a column name. The empty name is SortNone.
func ParseSortField(name string) (SortField, error) {
	if name == "" {
		return SortNone, nil
	}
	for _, f := range sortFields {
		if string(f) == name {
			return f, nil
		}
	}
	return SortNone, fmt.Errorf("listview: unknown sort field %q", name)
}

type Direction int

const (
	Unsorted Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "none"
	}
}

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50, 100}

// WindowSize is the maximum number of page buttons.
const WindowSize = 5

// Page is one rendered page of the list.
type Page struct {
	Items     []models.Grant `json:"items"`
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
	PageCount int            `json:"page_count"`
	Total     int            `json:"total"`
	First     int            `json:"first"`
	Last      int            `json:"last"`
	Window    []int          `json:"window"`
	SortField SortField      `json:"sort_field"`
	SortDir   string         `json:"sort_dir"`
	Search    string         `json:"search"`
}

// Engine holds the list and its view settings. Filtering runs first, then
// sorting, then pagination.
type Engine struct {
	mu       sync.Mutex
	records  []models.Grant
	search   string
	field    SortField
	dir      Direction
	page     int
	pageSize int
	collator *collate.Collator
}

// New returns an engine comparing text for locale. pageSize must be one of
// PageSizes; anything else falls back to 25.
func New(locale string, pageSize int) *Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if !validPageSize(pageSize) {
		pageSize = 25
	}
	return &Engine{
		page:     1,
		pageSize: pageSize,
		collator: collate.New(tag),
	}
}

func validPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// SetRecords replaces the list and returns to the first page.
func (e *Engine) SetRecords(records []models.Grant) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append([]models.Grant(nil), records...)
	e.page = 1
}

// SetSearch changes the search text; a change returns to the first page.
func (e *Engine) SetSearch(search string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if search == e.search {
		return
	}
	e.search = search
	e.page = 1
}

// ClickSort advances the sort state as a column header click would:
// ascending, then descending, then back to insertion order. Clicking a
// different field starts it ascending.
func (e *Engine) ClickSort(field SortField) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if field == SortNone {
		e.field, e.dir = SortNone, Unsorted
		return
	}
	if field != e.field {
		e.field, e.dir = field, Ascending
		return
	}
	switch e.dir {
	case Ascending:
		e.dir = Descending
	default:
		e.field, e.dir = SortNone, Unsorted
	}
}

// SetSort sets the sort state directly.
func (e *Engine) SetSort(field SortField, dir Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if field == SortNone || dir == Unsorted {
		e.field, e.dir = SortNone, Unsorted
		return
	}
	e.field, e.dir = field, dir
}

func (e *Engine) SetPage(page int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 1 {
		page = 1
	}
	e.page = page
}

// SetPageSize changes the page size without moving to another page.
func (e *Engine) SetPageSize(size int) error {
	if !validPageSize(size) {
		return fmt.Errorf("listview: page size %d not one of %v", size, PageSizes)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pageSize = size
	return nil
}

// Visible returns the filtered and sorted list, unpaginated.
func (e *Engine) Visible() []models.Grant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleLocked()
}

// View renders the current page. A page past the end is clamped to the last
// page.
func (e *Engine) View() Page {
	e.mu.Lock()
	defer e.mu.Unlock()

	visible := e.visibleLocked()
	total := len(visible)
	pageCount := (total + e.pageSize - 1) / e.pageSize
	if pageCount < 1 {
		pageCount = 1
	}
	if e.page > pageCount {
		e.page = pageCount
	}

	start := (e.page - 1) * e.pageSize
	end := start + e.pageSize
	if end > total {
		end = total
	}

	p := Page{
		Items:     append([]models.Grant{}, visible[start:end]...),
		Page:      e.page,
		PageSize:  e.pageSize,
		PageCount: pageCount,
		Total:     total,
		Window:    PageWindow(e.page, pageCount),
		SortField: e.field,
		SortDir:   e.dir.String(),
		Search:    e.search,
	}
	if end > start {
		p.First, p.Last = start+1, end
	}
	return p
}

func (e *Engine) visibleLocked() []models.Grant {
	out := make([]models.Grant, 0, len(e.records))
	needle := strings.ToLower(strings.TrimSpace(e.search))
	for _, g := range e.records {
		if needle == "" || matches(g, needle) {
			out = append(out, g)
		}
	}
	if e.field != SortNone && e.dir != Unsorted {
		sortGrants(out, e.field, e.dir, e.collator)
	}
	return out
}

func matches(g models.Grant, needle string) bool {
	for _, s := range []string{g.Title, models.Str(g.Department), models.Str(g.BdnsCode)} {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// PageWindow returns at most WindowSize page numbers around current, keeping
// the window inside 1..pageCount.
func PageWindow(current, pageCount int) []int {
	if pageCount <= 0 {
		return nil
	}
	start, end := 1, pageCount
	if pageCount > WindowSize {
		half := WindowSize / 2
		switch {
		case current <= half+1:
			start, end = 1, WindowSize
		case current >= pageCount-half:
			start, end = pageCount-WindowSize+1, pageCount
		default:
			start, end = current-half, current+half
		}
	}
	window := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		window = append(window, i)
	}
	return window
}

// sortGrants sorts in place. Ties keep their relative order and missing
// values always go last, whatever the direction.
func sortGrants(gs []models.Grant, field SortField, dir Direction, c *collate.Collator) {
	sort.SliceStable(gs, func(i, j int) bool {
		a, aok := key(gs[i], field)
		b, bok := key(gs[j], field)
		switch {
		case !aok:
			return false
		case !bok:
			return true
		}
		cmp := compare(a, b, c)
		if dir == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

type sortKey struct {
	text  string
	num   float64
	isNum bool
}

func key(g models.Grant, field SortField) (sortKey, bool) {
	switch field {
	case SortTitle:
		return sortKey{text: g.Title}, true
	case SortSource:
		return sortKey{text: g.Source}, true
	case SortDepartment:
		if g.Department == nil {
			return sortKey{}, false
		}
		return sortKey{text: *g.Department}, true
	case SortBudget:
		return numKey(g.BudgetAmount)
	case SortConfidence:
		return numKey(g.NonprofitConfidence)
	case SortDeadline:
		return dateKey(g.ApplicationEndDate)
	case SortPublication:
		return dateKey(g.PublicationDate)
	}
	return sortKey{}, false
}

func numKey(v *float64) (sortKey, bool) {
	if v == nil {
		return sortKey{}, false
	}
	return sortKey{num: *v, isNum: true}, true
}

func dateKey(d *models.Date) (sortKey, bool) {
	if d == nil || d.IsZero() {
		return sortKey{}, false
	}
	return sortKey{num: float64(d.Unix()), isNum: true}, true
}

func compare(a, b sortKey, c *collate.Collator) int {
	if a.isNum {
		d := a.num - b.num
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
		return 0
	}
	return c.CompareString(a.text, b.text)
}
