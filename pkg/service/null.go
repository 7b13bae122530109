package service

import (
	"time"

	"github.com/aarondl/opt/null"
)

// nullString maps the empty string to null
func nullString(s string) null.Val[string] {
	if s == "" {
		return null.Val[string]{}
	}
	return null.From(s)
}

// window maps a time range to unix seconds, zero times do not filter
func window(from, to time.Time) (f, t null.Val[int64]) {
	if !from.IsZero() {
		f = null.From(from.Unix())
	}
	if !to.IsZero() {
		t = null.From(to.Unix())
	}
	return f, t
}
