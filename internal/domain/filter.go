package domain

import (
	"math"
	"time"
	"unicode/utf8"
)

// SortField names a column tasks can be ordered by.
type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByUpdatedAt   SortField = "updated_at"
	SortByDueDate     SortField = "due_date"
	SortByPriority    SortField = "priority"
	SortByIsCompleted SortField = "is_completed"
)

// SortFields lists the accepted sort fields.
var SortFields = []SortField{SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority, SortByIsCompleted}

// Valid reports whether f is an accepted sort field.
func (f SortField) Valid() bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is asc or desc.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// Pagination limits.
const (
	DefaultPerPage  = 15
	MaxPerPage      = 100
	MinQueryLength  = 2
	MaxUpcomingDays = 365
)

// Paging validation messages.
const (
	MsgPageMin       = "The page must be at least 1."
	MsgPerPageRange  = "The items per page must be between 1 and 100."
	MsgUpcomingRange = "The upcoming window must be between 1 and 365 days."
)

// TaskFilter narrows, orders and pages a task listing. The owner is never part
// of the filter; stores take it as a separate argument.
type TaskFilter struct {
	IsCompleted *bool
	Priority    *Priority

	// DueOn is midnight of the requested day in the display timezone. Tasks
	// due in [DueOn, DueOn+24h) match.
	DueOn *time.Time

	Overdue      *bool
	UpcomingDays *int

	SortBy    SortField
	SortOrder SortOrder
	Page      int
	PerPage   int

	IncludeAuthor bool
}

// Normalize fills in defaults: newest first, page 1, 15 per page. A sort
// field without a direction sorts descending.
func (f TaskFilter) Normalize() TaskFilter {
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage == 0 {
		f.PerPage = DefaultPerPage
	}
	return f
}

// Validate checks a normalized filter.
func (f TaskFilter) Validate() error {
	errs := ValidationErrors{}
	if f.Priority != nil && !f.Priority.Valid() {
		errs.Add("priority", MsgPriorityInvalid)
	}
	if !f.SortBy.Valid() {
		errs.Add("sort_by", "The selected sort field is invalid.")
	}
	if !f.SortOrder.Valid() {
		errs.Add("sort_order", "The selected sort order is invalid.")
	}
	validatePaging(errs, f.Page, f.PerPage)
	if f.UpcomingDays != nil && (*f.UpcomingDays < 1 || *f.UpcomingDays > MaxUpcomingDays) {
		errs.Add("upcoming", MsgUpcomingRange)
	}
	return errs.Err()
}

// Offset returns the number of rows to skip for the current page.
func (f TaskFilter) Offset() int64 {
	return pageOffset(f.Page, f.PerPage)
}

// SearchQuery is a free-text search over the owner's tasks.
type SearchQuery struct {
	Query       string
	IsCompleted *bool
	Priority    *Priority
	Page        int
	PerPage     int

	IncludeAuthor bool
}

// Normalize fills in paging defaults.
func (q SearchQuery) Normalize() SearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = DefaultPerPage
	}
	return q
}

// Validate checks a normalized query. maxLength bounds the query text.
func (q SearchQuery) Validate(maxLength int) error {
	errs := ValidationErrors{}
	n := utf8.RuneCountInString(q.Query)
	switch {
	case n == 0:
		errs.Add("query", "A search query is required")
	case n < MinQueryLength:
		errs.Add("query", "Search query must be at least 2 characters")
	case maxLength > 0 && n > maxLength:
		errs.Add("query", "Search query is too long")
	}
	if q.Priority != nil && !q.Priority.Valid() {
		errs.Add("priority", MsgPriorityInvalid)
	}
	validatePaging(errs, q.Page, q.PerPage)
	return errs.Err()
}

// Offset returns the number of rows to skip for the current page.
func (q SearchQuery) Offset() int64 {
	return pageOffset(q.Page, q.PerPage)
}

// pageOffset saturates at math.MaxInt64 instead of overflowing, so a huge
// page number is simply past the last page.
func pageOffset(page, perPage int) int64 {
	if page <= 1 || perPage <= 0 {
		return 0
	}
	if int64(page-1) > math.MaxInt64/int64(perPage) {
		return math.MaxInt64
	}
	return int64(page-1) * int64(perPage)
}

func validatePaging(errs ValidationErrors, page, perPage int) {
	if page < 1 {
		errs.Add("page", MsgPageMin)
	}
	if perPage < 1 || perPage > MaxPerPage {
		errs.Add("per_page", MsgPerPageRange)
	}
}
