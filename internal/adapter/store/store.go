// Package store persists generated reports in SQLite or Postgres.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

// Recent limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit maps a requested page size into [1, MaxLimit]; zero or negative
// selects DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func encodeReport(r domain.AiReport) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return b, nil
}

func decodeReport(b []byte) (domain.AiReport, error) {
	var r domain.AiReport
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.AiReport{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
