package kernel

// Page represents pagination metadata
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

// Paginated is a page of items plus its metadata.
type Paginated[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"pagination"`
	Empty bool `json:"empty"`
}

// NewPaginated creates a new paginated result with calculated fields
func NewPaginated[T any](items []T, page, size, total int) Paginated[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	if items == nil {
		items = []T{}
	}

	return Paginated[T]{
		Items: items,
		Page:  Page{Number: page, Size: size, Total: total, Pages: pages},
		Empty: len(items) == 0,
	}
}

func (p Paginated[T]) HasNext() bool { return p.Page.Number < p.Page.Pages }

// PaginationOptions holds options for pagination queries
type PaginationOptions struct {
	Page     int // 1-based
	PageSize int
}

// Normalize clamps the page to >= 1 and the size to 1..maxSize,
// substituting def for a zero size.
func (o PaginationOptions) Normalize(def, maxSize int) PaginationOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize <= 0 {
		o.PageSize = def
	}
	if o.PageSize > maxSize {
		o.PageSize = maxSize
	}
	return o
}

// Offset returns the number of rows to skip for the page.
func (o PaginationOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}
