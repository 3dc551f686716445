package model

import (
	"time"
)

// Code lengths accepted for generation and redemption.
const (
	MinCodeLength = 7
	MaxCodeLength = 8
)

// MaxGenerateCount is the largest batch a single generate request may ask for.
const MaxGenerateCount = 2000

type DiscountCode struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	IsUsed    bool      `db:"is_used" json:"isUsed"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CodeStatus is the result of a point read. It is advisory: the state may change
// between the read and any later write.
type CodeStatus struct {
	Exists bool
	IsUsed bool
}

type CodeStats struct {
	Total    int         `json:"total"`
	Used     int         `json:"used"`
	Unused   int         `json:"unused"`
	ByLength map[int]int `json:"byLength"`
}

// IsValidCodeLength reports whether n is an accepted code length.
func IsValidCodeLength(n int) bool {
	return n == MinCodeLength || n == MaxCodeLength
}
