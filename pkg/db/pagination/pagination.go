package pagination

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination is the offset page request bound from list query strings.
type Pagination struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Normalize applies the default page and limit and caps the limit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	p.Limit = min(p.Limit, MaxLimit)
	return p
}

type PageInfo struct {
	Page       int
	TotalPages int
	Start      int
	End        int
}

// Window returns the slice bounds of the requested page over total items.
// Pages past the end yield an empty window.
func (p Pagination) Window(total int) PageInfo {
	p = p.Normalize()
	start := min((p.Page-1)*p.Limit, total)
	return PageInfo{
		Page:       p.Page,
		TotalPages: (total + p.Limit - 1) / p.Limit,
		Start:      start,
		End:        min(start+p.Limit, total),
	}
}
