package page

// Info is pagination metadata derived from the total match count and the
// requested page and limit. Pages beyond TotalPages are valid; they simply
// hold no records.
type Info struct {
	CurrentPage  int
	TotalPages   int
	TotalItems   int
	ItemsPerPage int
	HasNextPage  bool
	HasPrevPage  bool
}

// Calc derives pagination metadata. totalPages is ceil(totalItems/limit),
// zero when there are no items.
func Calc(totalItems, page, limit int) Info {
	totalPages := 0
	if totalItems > 0 && limit > 0 {
		totalPages = (totalItems + limit - 1) / limit
	}
	return Info{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// Offset returns the number of records to skip for the given page.
func Offset(page, limit int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}
