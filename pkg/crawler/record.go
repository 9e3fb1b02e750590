package crawler

import (
	"encoding/json"
	"fmt"

	"github.com/loltools/riftcrawl/pkg/riotapi"
)

// Record is the opaque match record the engine delivers to the record
// sink, serializable as a single JSON line.
type Record interface {
	ToJSONLine() (string, error)
}

// matchRecord adapts riotapi.Match to Record.
type matchRecord struct {
	riotapi.Match
}

func newRecord(m riotapi.Match) Record {
	return matchRecord{Match: m}
}

func (m matchRecord) ToJSONLine() (string, error) {
	data, err := json.Marshal(m.Match)
	if err != nil {
		return "", fmt.Errorf("crawler: marshal record: %w", err)
	}
	return string(data), nil
}

// RecordSink receives every match that clears the configured
// tier/map/patch filters, tagged with the match's minimum tier name.
type RecordSink func(rec Record, tierName string) error
