package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const auditFile = "filter_history.json"

// AppendAudit appends one filtering run's stats to the history file in dir,
// written with the same temp-then-rename discipline as the identity sets.
func AppendAudit(dir string, stats Stats) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "dedup: create state dir")
	}

	history := append(LoadAudit(dir), stats)
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dedup: marshal filter history")
	}
	return writeAtomic(filepath.Join(dir, auditFile), data)
}

// LoadAudit reads the filtering history from dir, oldest run first. A missing
// or corrupt history reads as empty.
func LoadAudit(dir string) []Stats {
	path := filepath.Join(dir, auditFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("dedup: unreadable filter history, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil
	}

	var history []Stats
	if err := json.Unmarshal(data, &history); err != nil {
		zap.L().Warn("dedup: corrupt filter history, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}
	return history
}
