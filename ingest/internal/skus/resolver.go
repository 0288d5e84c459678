// Package skus resolves composite course SKUs such as "PSM-061125-CB".
// The trailing hyphen-delimited segment identifies the trainer.
package skus

import (
	"strings"
)

// Resolver maps trainer codes to display names. The table is copied at
// construction and never modified, so a Resolver is safe for concurrent use.
type Resolver struct {
	names map[string]string
}

// DefaultTrainers is the built-in code to trainer table.
func DefaultTrainers() map[string]string {
	return map[string]string{
		"AB": "Alex Brown",
		"CB": "Chris Bexon",
	}
}

// NewResolver builds a Resolver over table. Codes are matched
// case-insensitively; blank codes and names are ignored.
func NewResolver(table map[string]string) *Resolver {
	names := make(map[string]string, len(table))
	for code, name := range table {
		code = normalizeCode(code)
		name = strings.TrimSpace(name)
		if code == "" || name == "" {
			continue
		}
		names[code] = name
	}
	return &Resolver{names: names}
}

// FromSku returns the trainer name encoded in sku's last segment.
func (r *Resolver) FromSku(sku string) (string, bool) {
	if r == nil {
		return "", false
	}
	code := TrainerCode(sku)
	if code == "" {
		return "", false
	}
	name, ok := r.names[normalizeCode(code)]
	return name, ok
}

// Len returns the number of mapped codes.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// TrainerCode returns the trimmed last hyphen-delimited segment of sku.
func TrainerCode(sku string) string {
	if strings.TrimSpace(sku) == "" {
		return ""
	}
	segments := strings.Split(sku, "-")
	return strings.TrimSpace(segments[len(segments)-1])
}

// CourseCode returns the upper-cased first segment of sku, e.g. "PSM".
func CourseCode(sku string) string {
	first, _, _ := strings.Cut(sku, "-")
	return strings.ToUpper(strings.TrimSpace(first))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
