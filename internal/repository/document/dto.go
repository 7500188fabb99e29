package document

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// Hash field layout for an app entry. Metadata types are stored as
// meta_<type> TAG fields with comma-separated option values.
const (
	fieldText     = "text"
	fieldRating   = "rating"
	fieldReviews  = "reviews"
	fieldFeatured = "featured"
	fieldVector   = "vector"

	metaFieldPrefix = "meta_"
	tagSeparator    = ","
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := make(map[string]string, 5+len(doc.Metadata()))
	m[fieldText] = doc.PrimaryText()
	m[fieldRating] = strconv.FormatFloat(doc.Quality().Rating, 'f', -1, 64)
	m[fieldReviews] = strconv.Itoa(doc.Quality().ReviewCount)
	m[fieldFeatured] = boolToFlag(doc.Quality().Featured)
	m[fieldVector] = vectorToBytes(doc.Vector())
	for metaType, values := range doc.Metadata() {
		m[metaFieldPrefix+metaType] = strings.Join(values, tagSeparator)
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domdoc.Document {
	var text string
	var vector []float32
	var quality domdoc.Quality
	metadata := make(map[string][]string)

	for k, v := range m {
		switch k {
		case fieldText:
			text = v
		case fieldRating:
			quality.Rating, _ = strconv.ParseFloat(v, 64)
		case fieldReviews:
			quality.ReviewCount, _ = strconv.Atoi(v)
		case fieldFeatured:
			quality.Featured = v == "1"
		case fieldVector:
			vector = bytesToVector(v)
		default:
			if metaType, ok := strings.CutPrefix(k, metaFieldPrefix); ok && v != "" {
				metadata[metaType] = strings.Split(v, tagSeparator)
			}
		}
	}

	if len(metadata) == 0 {
		metadata = nil
	}
	return domdoc.Reconstruct(id, text, metadata, quality, vector)
}

func boolToFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
