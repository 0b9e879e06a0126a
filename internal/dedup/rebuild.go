package dedup

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

// historicalRow is the subset of batch-CSV columns that carry identity
// signals. Older archives miss some columns, so every field is optional.
type historicalRow struct {
	ProductID string `csv:"product_id,omitempty"`
	URL       string `csv:"url,omitempty"`
	Thumbnail string `csv:"thumbnail,omitempty"`
}

// RebuildFromHistory reconstructs the three identity sets from scratch by
// scanning every historical batch file. Used for recovery or first-time
// bootstrap. A file that cannot be read or parsed is skipped with a warning.
func RebuildFromHistory(paths []string) *State {
	s := NewState()

	for _, path := range paths {
		if err := scanFile(s, path); err != nil {
			zap.L().Warn("dedup: skipping historical file",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("dedup: scanned historical file", zap.String("path", path))
	}

	urls, thumbs, ids := s.Counts()
	zap.L().Info("dedup: state rebuilt",
		zap.Int("urls", urls),
		zap.Int("thumbnails", thumbs),
		zap.Int("product_ids", ids),
	)
	return s
}

func scanFile(s *State, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "dedup: open historical file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return eris.Wrap(err, "dedup: read header")
	}

	for {
		var row historicalRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return eris.Wrap(err, "dedup: decode row")
		}

		if u := CanonicalURL(row.URL); u != "" {
			s.URLs[u] = struct{}{}
		}
		if h := ThumbnailHash(row.Thumbnail); h != "" {
			s.Thumbnails[h] = struct{}{}
		}
		if row.ProductID != "" {
			s.ProductIDs[row.ProductID] = struct{}{}
		}
	}
	return nil
}

// Signals registers a record's identity signals directly, used when state is
// advanced from rows already held in memory.
func (s *State) Signals(p model.ProductRecord) {
	if u := CanonicalURL(p.URL); u != "" {
		s.URLs[u] = struct{}{}
	}
	if h := ThumbnailHash(p.Thumbnail); h != "" {
		s.Thumbnails[h] = struct{}{}
	}
	if p.ProductID != "" {
		s.ProductIDs[p.ProductID] = struct{}{}
	}
}
