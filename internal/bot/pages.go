package bot

import "github.com/m3rciful/callmylawyer/internal/orders"

// PageSize is the number of orders per admin page.
const PageSize = 10

// Page is one slice of the admin order listing. Number is 1-based.
type Page struct {
	Items  []orders.Order
	Number int
	Pages  int
	Total  int
}

// Paginate cuts list into pages of size and returns page n, clamped to the
// valid range.
func Paginate(list []orders.Order, n, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	total := len(list)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	start := (n - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page{
		Items:  list[start:end],
		Number: n,
		Pages:  pages,
		Total:  total,
	}
}
