// Package page implements offset pagination with exact or estimated totals.
//
// Every paginated result must be ordered by a chain of keys that ends in a column set unique
// across the result domain. Without that tie-break, rows sharing a sort value can move between
// pages and offset pagination duplicates or skips them. Ordering enforces the rule for SQL;
// in-memory sorts in the aggregators carry their own full comparator chain.
package page

import (
	"math"

	"github.com/vietddude/explorer/internal/core/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is a validated page/limit pair.
type Request struct {
	Page  int
	Limit int
}

// New validates page >= 1 and limit in [1, MaxLimit]. The offset of the page must fit in
// an int.
func New(page, limit int) (Request, error) {
	if page < 1 {
		return Request{}, &domain.ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	if limit < 1 || limit > MaxLimit {
		return Request{}, &domain.ValidationError{Field: "limit", Reason: "must be between 1 and 100"}
	}
	if page-1 > math.MaxInt/limit {
		return Request{}, &domain.ValidationError{Field: "page", Reason: "out of range"}
	}
	return Request{Page: page, Limit: limit}, nil
}

// Offset is the number of rows skipped before this page.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Envelope is the response shape of every paginated operation.
// Estimated is true when Total comes from a bounded recent window rather than an exact count.
type Envelope[T any] struct {
	Data       []T                       `json:"data"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	Total      int64                     `json:"total"`
	TotalPages int64                     `json:"totalPages"`
	Estimated  bool                      `json:"estimated"`
	Warnings   []domain.IntegrityWarning `json:"warnings,omitempty"`
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// Build wraps an already-paged result.
func Build[T any](req Request, data []T, total int64, estimated bool) Envelope[T] {
	if data == nil {
		data = []T{}
	}
	return Envelope[T]{
		Data:       data,
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: TotalPages(total, req.Limit),
		Estimated:  estimated,
	}
}

// Slice pages a fully sorted in-memory result. The total is exact.
func Slice[T any](req Request, all []T) Envelope[T] {
	start := req.Offset()
	if start < 0 || start > len(all) {
		start = len(all)
	}
	end := start + req.Limit
	if end > len(all) {
		end = len(all)
	}

	data := make([]T, end-start)
	copy(data, all[start:end])
	return Build(req, data, int64(len(all)), false)
}

// Map converts the data of an envelope, keeping the pagination fields.
func Map[T, U any](env Envelope[T], fn func(T) U) Envelope[U] {
	out := make([]U, len(env.Data))
	for i, v := range env.Data {
		out[i] = fn(v)
	}
	return Envelope[U]{
		Data:       out,
		Page:       env.Page,
		Limit:      env.Limit,
		Total:      env.Total,
		TotalPages: env.TotalPages,
		Estimated:  env.Estimated,
		Warnings:   env.Warnings,
	}
}
