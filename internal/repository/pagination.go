package repository

import "gorm.io/gorm"

// List endpoints accept ?page= and ?limit=; limit maps onto PageSize.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

type PageResult[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

func normalizePageRequest(req PageRequest) PageRequest {
	if req.Page < 1 {
		req.Page = DefaultPage
	}
	if req.PageSize < 1 {
		req.PageSize = DefaultPageSize
	}
	if req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}
	return req
}

func (r PageRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}

func calcTotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// fetchPage counts rows matching filtered, then loads one page with order
// applied to a separate session so ORDER BY never reaches the count.
// Items is never nil so an empty page encodes as [].
func fetchPage[T any](filtered *gorm.DB, order func(*gorm.DB) *gorm.DB, req PageRequest) (PageResult[T], error) {
	req = normalizePageRequest(req)
	result := PageResult[T]{Page: req.Page, PageSize: req.PageSize}
	if err := filtered.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		return PageResult[T]{}, err
	}
	list := filtered.Session(&gorm.Session{})
	if order != nil {
		list = order(list)
	}
	if err := list.Offset(req.offset()).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		return PageResult[T]{}, err
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	return result, nil
}
