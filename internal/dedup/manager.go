package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

// Reason labels why a row was accepted or rejected, for auditability.
type Reason string

const (
	ReasonNewEntry           Reason = "new_entry"
	ReasonDuplicateURL       Reason = "duplicate_url"
	ReasonDuplicateThumbnail Reason = "duplicate_thumbnail"
	ReasonDuplicateProductID Reason = "duplicate_product_id"
	ReasonDuplicateText      Reason = "duplicate_text"
)

// RowResult pairs an incoming row with its classification.
type RowResult struct {
	Row    model.ProductRecord `json:"row"`
	Reason Reason              `json:"reason"`
}

// Stats summarizes one filtering run.
type Stats struct {
	Timestamp      string         `json:"timestamp"`
	InitialRows    int            `json:"initial_rows"`
	NewRows        int            `json:"new_rows"`
	Removed        int            `json:"removed"`
	ReasonCounts   map[Reason]int `json:"reason_counts"`
	SeenURLs       int            `json:"seen_url_total"`
	SeenThumbnails int            `json:"seen_thumbnail_total"`
	SeenProductIDs int            `json:"seen_products_total"`
}

var trackingParamRe = regexp.MustCompile(`(\?|&)(utm_[^=]+=[^&]*)`)

// CanonicalURL normalizes a URL into a stable identity signal: lowercased,
// trimmed, known tracking query parameters stripped.
func CanonicalURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if u == "" {
		return ""
	}
	u = trackingParamRe.ReplaceAllString(u, "")
	u = strings.TrimRight(u, "&")
	u = strings.TrimRight(u, "?")
	return u
}

// ThumbnailHash fingerprints a thumbnail payload. Returns "" for empty input.
func ThumbnailHash(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// LogicalKey builds the intra-batch composite text key. Missing fields fall
// back to fixed placeholders so sparse rows still collapse consistently.
func LogicalKey(p model.ProductRecord) string {
	brand := p.BrandNormalized
	if brand == "" {
		brand = "none"
	}
	name := p.NameNormalized
	if name == "" {
		name = "none"
	}
	category := p.CategoryNormalized
	if category == "" {
		category = "unknown"
	}
	return brand + "_" + name + "_" + category
}

// FilterNew classifies each row of an incoming batch against the persisted
// identity sets and the batch itself, returning only genuinely new rows.
// The state is updated in place with signals from the new rows; the caller
// is responsible for persisting it afterwards.
//
// A row is a duplicate when its canonical URL or thumbnail hash is already
// known, when its product ID is in a non-empty persisted ID set, or when its
// logical text key appeared earlier in the same batch (first occurrence
// wins). Checks run in that order and the first hit labels the row.
func (s *State) FilterNew(batch []model.ProductRecord) ([]model.ProductRecord, []RowResult, Stats) {
	newRows := make([]model.ProductRecord, 0, len(batch))
	results := make([]RowResult, 0, len(batch))
	reasonCounts := make(map[Reason]int)
	batchKeys := make(map[string]struct{})

	checkProductIDs := len(s.ProductIDs) > 0

	for _, row := range batch {
		reason := ReasonNewEntry

		url := CanonicalURL(row.URL)
		thumb := ThumbnailHash(row.Thumbnail)
		key := LogicalKey(row)

		switch {
		case url != "" && contains(s.URLs, url):
			reason = ReasonDuplicateURL
		case thumb != "" && contains(s.Thumbnails, thumb):
			reason = ReasonDuplicateThumbnail
		case checkProductIDs && row.ProductID != "" && contains(s.ProductIDs, row.ProductID):
			reason = ReasonDuplicateProductID
		default:
			if _, seen := batchKeys[key]; seen {
				reason = ReasonDuplicateText
			}
		}
		batchKeys[key] = struct{}{}

		reasonCounts[reason]++
		results = append(results, RowResult{Row: row, Reason: reason})

		if reason != ReasonNewEntry {
			continue
		}
		newRows = append(newRows, row)

		if url != "" {
			s.URLs[url] = struct{}{}
		}
		if thumb != "" {
			s.Thumbnails[thumb] = struct{}{}
		}
		if row.ProductID != "" {
			s.ProductIDs[row.ProductID] = struct{}{}
		}
	}

	stats := Stats{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		InitialRows:    len(batch),
		NewRows:        len(newRows),
		Removed:        len(batch) - len(newRows),
		ReasonCounts:   reasonCounts,
		SeenURLs:       len(s.URLs),
		SeenThumbnails: len(s.Thumbnails),
		SeenProductIDs: len(s.ProductIDs),
	}

	zap.L().Info("dedup: batch filtered",
		zap.Int("initial", stats.InitialRows),
		zap.Int("new", stats.NewRows),
		zap.Int("removed", stats.Removed),
	)
	return newRows, results, stats
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
