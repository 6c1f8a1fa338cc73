package articleui

import "strconv"

// maxListedPages is the page count up to which every page number is shown.
const maxListedPages = 5

// Pagination describes the page-number controls under the list.
type Pagination struct {
	TotalPages int           `json:"totalPages"`
	First      PageControl   `json:"first"`
	Pages      []PageControl `json:"pages"`
	Last       PageControl   `json:"last"`
}

// PageControl is a single pagination element. Ellipsis elements carry no
// page and are never clickable.
type PageControl struct {
	Label    string `json:"label"`
	Page     int    `json:"page,omitempty"`
	Current  bool   `json:"current,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Ellipsis bool   `json:"ellipsis,omitempty"`
}

// TotalPages returns ceil(total/limit), never less than one.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 1
	}

	return (total + limit - 1) / limit
}

// Paginate builds the pagination controls for page of ceil(total/limit).
func Paginate(page, total, limit int) Pagination {
	n := TotalPages(total, limit)
	p := Pagination{
		TotalPages: n,
		First:      PageControl{Label: "first", Page: 1, Disabled: page == 1},
		Last:       PageControl{Label: "last", Page: n, Disabled: page == n},
	}

	number := func(i int) PageControl {
		return PageControl{Label: strconv.Itoa(i), Page: i, Current: i == page}
	}
	ellipsis := PageControl{Label: "...", Ellipsis: true}

	if n <= maxListedPages {
		p.Pages = make([]PageControl, 0, n)
		for i := 1; i <= n; i++ {
			p.Pages = append(p.Pages, number(i))
		}

		return p
	}

	p.Pages = append(p.Pages, number(1))
	if page > 2 {
		p.Pages = append(p.Pages, ellipsis)
	}
	if page > 1 && page < n {
		p.Pages = append(p.Pages, number(page))
	}
	if page < n-1 {
		p.Pages = append(p.Pages, ellipsis)
	}
	p.Pages = append(p.Pages, number(n))

	return p
}
