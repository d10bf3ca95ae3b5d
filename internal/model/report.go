package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSort names an admin list ordering.
type OrderSort string

const (
	SortCreatedDesc OrderSort = "-createdAt"
	SortCreatedAsc  OrderSort = "createdAt"
	SortTotalDesc   OrderSort = "-totalPrice"
	SortTotalAsc    OrderSort = "totalPrice"
)

func (s OrderSort) Valid() bool {
	switch s {
	case SortCreatedDesc, SortCreatedAsc, SortTotalDesc, SortTotalAsc:
		return true
	}
	return false
}

// OrderFilter holds the independently composable admin filters. Zero
// values mean "no constraint".
type OrderFilter struct {
	Statuses   []OrderStatus
	From       *time.Time
	To         *time.Time
	Query      string
	MinTotal   *decimal.Decimal
	MaxTotal   *decimal.Decimal
	CustomerID uint64
	Sort       OrderSort
}

// Page is a 1-based offset page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// OrderPage is one page of admin results.
type OrderPage struct {
	Orders []Order
	Total  int64
	Page   int
	Limit  int
	Pages  int
}

// OrderStat is the minimal projection used to build daily metrics.
type OrderStat struct {
	CreatedAt  time.Time
	TotalPrice decimal.Decimal
}

// DayBucket is one point of the trailing order trend.
type DayBucket struct {
	Date    string
	Count   int
	Revenue decimal.Decimal
}

// Metrics is the admin dashboard summary.
type Metrics struct {
	OrdersToday     int
	RevenueToday    decimal.Decimal
	StatusBreakdown map[OrderStatus]int
	Trend           []DayBucket
}
