package pagination

import (
	"gorm.io/gorm"
)

// DefaultFirst is the page size used when the caller does not ask for one.
const DefaultFirst = 20

// PageRequest holds skip/first pagination parameters parsed from query strings.
type PageRequest struct {
	Skip  int `form:"skip" binding:"omitempty,min=0"`
	First int `form:"first" binding:"omitempty,min=1,max=100"`
}

// Defaults fills in default values when first is not provided.
func (p *PageRequest) Defaults() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.First <= 0 {
		p.First = DefaultFirst
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	req.Defaults()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Skip).Limit(req.First)
	}
}
