package model

import (
	"encoding/json"
	"time"
)

// Exchange is one answered question of a session, kept as a transcript
// record. Sources is stored as a JSON array of strings.
type Exchange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:255;not null;index" json:"session_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Sources   string    `gorm:"type:text" json:"-"`
	Model     string    `gorm:"size:128" json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

func (Exchange) TableName() string { return "rag_exchanges" }

// SourceList returns the parsed sources; nil on parse error.
func (e *Exchange) SourceList() []string {
	if e.Sources == "" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(e.Sources), &v); err != nil {
		return nil
	}
	return v
}

// SetSources stores the sources as JSON.
func (e *Exchange) SetSources(sources []string) {
	if len(sources) == 0 {
		e.Sources = "[]"
		return
	}
	b, _ := json.Marshal(sources)
	e.Sources = string(b)
}
