package common

import (
	"net/http"
	"strconv"
)

// Page is the paging window of a list response.
type Page struct {
	Number     int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
}

// ParsePage reads ?page= and ?perPage=. Out of range sizes fall back to def.
func ParsePage(r *http.Request, def, max int) Page {
	p := Page{Number: 1, PerPage: def}
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(q.Get("perPage")); err == nil && n > 0 && n <= max {
		p.PerPage = n
	}
	return p
}

// Paginate returns the slice of items covered by p and records the total.
func Paginate[T any](items []T, p *Page) []T {
	p.TotalItems = len(items)
	start := (p.Number - 1) * p.PerPage
	if start > len(items) {
		start = len(items)
	}
	end := min(start+p.PerPage, len(items))
	return items[start:end]
}
