package document

import (
	"strings"

	"github.com/maknoon-cloud/qurandex/internal/domain/arabic"
)

// Source holds the raw entity fields a primary text is assembled from,
// in priority order. Empty fields are skipped.
type Source struct {
	NameAr         string
	NameEn         string
	ShortDesc      string
	Description    string
	Developer      string
	Categories     []string
	MetadataLabels []string
	CrawledContent string
}

// PrimaryText assembles the normalized text blob fed to the embedder.
// Fields are normalized individually, blanks dropped, joined by single spaces.
func (s Source) PrimaryText() string {
	parts := make([]string, 0, 8+len(s.Categories)+len(s.MetadataLabels))
	parts = append(parts, s.NameAr, s.NameEn, s.ShortDesc, s.Description, s.Developer)
	parts = append(parts, s.Categories...)
	parts = append(parts, s.MetadataLabels...)
	parts = append(parts, s.CrawledContent)

	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(arabic.Normalize(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}
