// Package filter implements hard metadata filters: OR within a metadata
// type, AND across types.
package filter

import (
	"fmt"
	"sort"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// MaxValuesPerType is the maximum number of accepted values per metadata type.
const MaxValuesPerType = 32

// Map is a validated filter: metadata-type name to accepted option values.
// A candidate passes a type if its value set intersects the accepted set
// (OR semantics); it must pass every type present (AND semantics). An empty
// Map imposes no constraint.
type Map struct {
	accepted map[string][]string
}

// New validates and creates a filter Map.
func New(accepted map[string][]string) (Map, error) {
	for metaType, values := range accepted {
		if metaType == "" {
			return Map{}, fmt.Errorf("%w: filter type name is required", domain.ErrInvalidArgument)
		}
		if len(values) == 0 {
			return Map{}, fmt.Errorf("%w: filter %q has no accepted values", domain.ErrInvalidArgument, metaType)
		}
		if len(values) > MaxValuesPerType {
			return Map{}, fmt.Errorf(
				"%w: filter %q has too many values (max %d)", domain.ErrInvalidArgument, metaType, MaxValuesPerType,
			)
		}
		for _, v := range values {
			if v == "" {
				return Map{}, fmt.Errorf("%w: filter %q has an empty value", domain.ErrInvalidArgument, metaType)
			}
		}
	}

	m := make(map[string][]string, len(accepted))
	for k, vals := range accepted {
		m[k] = append([]string(nil), vals...)
	}
	return Map{accepted: m}, nil
}

// IsEmpty reports whether the filter has no constraints.
func (m Map) IsEmpty() bool { return len(m.accepted) == 0 }

// Values returns the accepted values for a metadata type (nil if unconstrained).
func (m Map) Values(metaType string) []string { return m.accepted[metaType] }

// Types returns the constrained metadata types in sorted order.
func (m Map) Types() []string {
	types := make([]string, 0, len(m.accepted))
	for t := range m.accepted {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Matches reports whether the document passes every constrained type.
func (m Map) Matches(doc *document.Document) bool {
	return m.matchesExcept(doc, "")
}

// MatchesExcept reports whether the document passes every constrained type
// other than skipType. Used for faceted drill-down counting.
func (m Map) MatchesExcept(doc *document.Document, skipType string) bool {
	return m.matchesExcept(doc, skipType)
}

func (m Map) matchesExcept(doc *document.Document, skipType string) bool {
	for metaType, accepted := range m.accepted {
		if metaType == skipType {
			continue
		}
		if !intersects(doc.Metadata()[metaType], accepted) {
			return false
		}
	}
	return true
}

// Without returns a copy of the filter with one type removed.
func (m Map) Without(metaType string) Map {
	if _, ok := m.accepted[metaType]; !ok {
		return m
	}
	c := make(map[string][]string, len(m.accepted)-1)
	for k, vals := range m.accepted {
		if k != metaType {
			c[k] = vals
		}
	}
	return Map{accepted: c}
}

func intersects(have, accepted []string) bool {
	for _, h := range have {
		for _, a := range accepted {
			if h == a {
				return true
			}
		}
	}
	return false
}
