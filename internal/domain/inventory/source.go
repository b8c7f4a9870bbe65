package inventory

import "context"

// Source reads the remote stock sheet: display name -> stock count, already coerced to
// non-negative integers.
//
//go:generate mockgen -source=source.go -package inventory -destination source_mock.go
type Source interface {
	Fetch(ctx context.Context) (map[string]int, error)
}
