// Package document holds the searchable document aggregate: the per-query
// view of a directory entry (app), owned by the indexing pipeline.
package document

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxPrimaryTextSize is the maximum primary text size in bytes.
const MaxPrimaryTextSize = 163840 // 160KB

// Quality holds the quality signals used by the boosting engine.
type Quality struct {
	Rating      float64
	ReviewCount int
	Featured    bool
}

// Document is the searchable document aggregate (immutable value object).
// Metadata maps a metadata-type name to its set of option values,
// e.g. {"riwayah": ["hafs", "warsh"], "features": ["offline"]}.
type Document struct {
	id          string
	primaryText string
	metadata    map[string][]string
	quality     Quality
	vector      []float32
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. PrimaryText: non-empty, max 160KB.
func New(id, primaryText string, metadata map[string][]string, quality Quality) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if primaryText == "" {
		return Document{}, fmt.Errorf("primary text is required")
	}
	if len(primaryText) > MaxPrimaryTextSize {
		return Document{}, fmt.Errorf("primary text too large (max %d bytes)", MaxPrimaryTextSize)
	}

	return Document{
		id:          id,
		primaryText: primaryText,
		metadata:    cloneMetadata(metadata),
		quality:     quality,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, primaryText string, metadata map[string][]string, quality Quality, vector []float32,
) Document {
	return Document{id: id, primaryText: primaryText, metadata: metadata, quality: quality, vector: vector}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// PrimaryText returns the normalized weighted text blob.
func (d *Document) PrimaryText() string { return d.primaryText }

// Metadata returns the metadata-type to option-values mapping.
func (d *Document) Metadata() map[string][]string { return d.metadata }

// Quality returns the quality signals.
func (d *Document) Quality() Quality { return d.quality }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{
		id: d.id, primaryText: d.primaryText, metadata: d.metadata,
		quality: d.quality, vector: v,
	}
}

// HasMetadataValue reports whether the document carries the given option
// value for the metadata type.
func (d *Document) HasMetadataValue(metaType, value string) bool {
	for _, v := range d.metadata[metaType] {
		if v == value {
			return true
		}
	}
	return false
}

func cloneMetadata(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	c := make(map[string][]string, len(m))
	for k, vals := range m {
		c[k] = append([]string(nil), vals...)
	}
	return c
}
