package models

import "gorm.io/gorm"

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

type PageInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	HasNextPage bool  `json:"hasNextPage"`
}

type Page struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
	// All disables paging; used by exports.
	All bool `form:"-" json:"-"`
}

func (p Page) normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// FetchPage counts dbCtx, then loads one page of it into dest.
func FetchPage[T any](dbCtx *gorm.DB, page Page, order string) ([]*T, *PageInfo, error) {
	page = page.normalize()

	var total int64
	if err := dbCtx.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var results []*T
	query := dbCtx.Session(&gorm.Session{}).Order(order)
	if page.All {
		page.Page, page.Limit = 1, int(total)
	} else {
		query = query.Offset((page.Page - 1) * page.Limit).Limit(page.Limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, nil, err
	}

	return results, &PageInfo{
		Page:        page.Page,
		Limit:       page.Limit,
		Total:       total,
		HasNextPage: int64(page.Page*page.Limit) < total,
	}, nil
}
