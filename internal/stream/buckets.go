package stream

import (
	"github.com/classboard/board-stream/internal/domain"
)

// Bucket groups consecutive messages sharing a calendar day, for rendering
// only. Buckets are recomputed on every list update and carry no persisted
// identity.
type Bucket struct {
	Label string           `json:"label"`
	Items []domain.Message `json:"items"`
}

const dayLabelLayout = "January 2, 2006"

// GroupByDay partitions items in arrival order into contiguous day buckets.
// A new bucket starts whenever the calendar date (year/month/day, not
// timestamp distance) differs from the previous item's.
func GroupByDay(items []domain.Message) []Bucket {
	var out []Bucket
	for _, m := range items {
		y, mo, d := m.CreatedAt.Date()
		if n := len(out); n > 0 {
			py, pmo, pd := out[n-1].Items[len(out[n-1].Items)-1].CreatedAt.Date()
			if y == py && mo == pmo && d == pd {
				out[n-1].Items = append(out[n-1].Items, m)
				continue
			}
		}
		out = append(out, Bucket{
			Label: m.CreatedAt.Format(dayLabelLayout),
			Items: []domain.Message{m},
		})
	}
	return out
}
