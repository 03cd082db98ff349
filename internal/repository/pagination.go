package repository

import "gorm.io/gorm"

// Page selects one page of a listing.  Page is 1-based.
type Page struct {
    Page    int
    PerPage int
}

// NewPage clamps the requested page into [1, max] items per page,
// falling back to def when perPage is unset.
func NewPage(page, perPage, def, max int) Page {
    if page < 1 {
        page = 1
    }
    if perPage < 1 {
        perPage = def
    }
    if perPage > max {
        perPage = max
    }
    return Page{Page: page, PerPage: perPage}
}

func (p Page) offset() int { return (p.Page - 1) * p.PerPage }

// Paged is the envelope returned by every paginated listing.
type Paged[T any] struct {
    Data     []T   `json:"data"`
    Total    int64 `json:"total"`
    Page     int   `json:"page"`
    PerPage  int   `json:"per_page"`
    LastPage int   `json:"last_page"`
}

// paginate counts q, then loads the requested page into a Paged result.
// q must already carry its WHERE clauses; ordering and preloads are
// applied by the caller through order.
func paginate[T any](q *gorm.DB, p Page, order func(*gorm.DB) *gorm.DB) (Paged[T], error) {
    out := Paged[T]{Data: []T{}, Page: p.Page, PerPage: p.PerPage}
    if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
        return out, err
    }
    if out.Total > 0 {
        out.LastPage = int((out.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
    } else {
        out.LastPage = 1
    }
    data := q.Session(&gorm.Session{})
    if order != nil {
        data = order(data)
    }
    if err := data.Offset(p.offset()).Limit(p.PerPage).Find(&out.Data).Error; err != nil {
        return out, err
    }
    return out, nil
}
