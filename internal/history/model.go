package history

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind is the browse action an entry was recorded for.
type Kind string

const (
	KindArea   Kind = "area"
	KindSearch Kind = "search"
)

// Entry represents one recorded browse action.
type Entry struct {
	ID          int64     `json:"id" db:"id"`
	SessionID   string    `json:"-" db:"session_id"`
	Kind        Kind      `json:"kind" db:"kind"`
	Term        string    `json:"term" db:"term"`
	ResultCount int       `json:"result_count" db:"result_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type Alias Entry // Create an alias to avoid infinite recursion
	aux := &struct {
		Kind string `json:"kind"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.Kind = Kind(strings.ToLower(aux.Kind))

	return nil
}
