package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the local mirror of an externally sourced catalog entry,
// stored in the `products` table. ExternalRef is the natural key used
// for lazy mirroring and is unique when present.
//
// Fields:
//
//	ID          – primary key identifier.
//	ExternalRef – identifier in the third-party catalog (may be empty).
//	Slug        – URL friendly form of Name.
//	Name        – product title.
//	Description – free text description.
//	Price       – current unit price, never negative.
//	Image       – image URL or path.
//	Category    – catalog category, "general" when unknown.
//	Stock       – units in stock, never negative.
//	IsActive    – whether the product is listed.
type Product struct {
	ID          uint64
	ExternalRef string
	Slug        string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Stock       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductHint carries the client supplied details used to create a
// mirror entry the first time an external product is referenced.
type ProductHint struct {
	Name        string
	Price       decimal.Decimal
	Image       string
	Description string
	Category    string
	Stock       *int
}

// Resolution tells a caller which path a get-or-create took.
type Resolution int

const (
	Found Resolution = iota
	Created
)

func (r Resolution) String() string {
	if r == Created {
		return "created"
	}
	return "found"
}
