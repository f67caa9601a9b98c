package domain

import (
	"encoding/json"
	"strconv"
)

// CountError is what a failed aggregate renders as.
const CountError = "error"

// Count is the result of one aggregate query. A failed query keeps its reason
// in Err and renders as CountError instead of a number.
type Count struct {
	Value int64
	Err   string
}

// Failed reports whether the aggregate query behind c failed.
func (c Count) Failed() bool {
	return c.Err != ""
}

// Or returns the count, or def when the query failed.
func (c Count) Or(def int64) int64 {
	if c.Failed() {
		return def
	}
	return c.Value
}

func (c Count) MarshalJSON() ([]byte, error) {
	if c.Failed() {
		return json.Marshal(CountError)
	}
	return []byte(strconv.FormatInt(c.Value, 10)), nil
}

// Stats is a collection-wide snapshot. Partial results are valid: every count
// is queried independently.
type Stats struct {
	Available      bool   `json:"available"`
	TotalDocuments Count  `json:"totalDocuments"`
	Conversations  Count  `json:"conversations"`
	UserMessages   Count  `json:"userMessages"`
	BotMessages    Count  `json:"botMessages"`
	SystemMessages Count  `json:"systemMessages"`
	TotalMessages  int64  `json:"totalMessages"`
	RecentActivity string `json:"recentActivity,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ConfigInfo describes the persistence configuration and its health.
type ConfigInfo struct {
	Available    bool   `json:"available"`
	Initialized  bool   `json:"initialized"`
	Database     string `json:"database"`
	Container    string `json:"container"`
	PartitionKey string `json:"partitionKey"`
	Error        string `json:"error,omitempty"`
}
