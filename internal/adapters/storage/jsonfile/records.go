package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hylla/worklog/internal/domain"
)

// recordID accepts both string ids and the numeric millisecond ids written by older data files.
type recordID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *recordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode record id %s: %w", data, err)
	}
	*id = recordID(n.String())
	return nil
}

// activityRecord decodes one persisted activity; the outer ID shadows domain.Activity.ID.
type activityRecord struct {
	domain.Activity
	ID recordID `json:"id"`
}

type summaryRecord struct {
	domain.Summary
	ID recordID `json:"id"`
}
