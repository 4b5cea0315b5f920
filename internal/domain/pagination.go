package domain

// PageMeta describes one page of a listing.
type PageMeta struct {
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int

	// From and To are 1-based positions of the first and last item on the
	// page. Both are nil when the page is empty.
	From *int
	To   *int
}

// NewPageMeta computes metadata for a page holding count items out of total.
// LastPage is never below 1, so an empty listing still reports one page.
func NewPageMeta(total int64, page, perPage, count int) PageMeta {
	meta := PageMeta{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    1,
	}
	if perPage > 0 && total > 0 {
		meta.LastPage = int((total + int64(perPage) - 1) / int64(perPage))
	}
	if count > 0 {
		from := (page-1)*perPage + 1
		to := from + count - 1
		meta.From = &from
		meta.To = &to
	}
	return meta
}

// TaskPage is one page of tasks.
type TaskPage struct {
	Tasks []*Task
	Meta  PageMeta
}
