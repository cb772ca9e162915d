package discovery

// Pagination is the page metadata returned with every result section.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	Limit           int  `json:"limit"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination derives page metadata from a total count. totalPages is never
// below 1, so an empty result still reports a valid first page.
func NewPagination(page, limit, total int) Pagination {
	pages := 1
	if limit > 0 && total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:     page,
		Limit:           limit,
		TotalCount:      total,
		TotalPages:      pages,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
}

// Window is the slice of an ordered result set to return.
type Window struct {
	Limit  int
	Offset int
}

// Beyond reports whether the window starts past the last of total rows, in
// which case the page query can be skipped. A negative offset never
// addresses a row.
func (w Window) Beyond(total int) bool {
	return w.Offset < 0 || w.Offset >= total
}
