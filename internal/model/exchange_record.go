package model

import (
	"encoding/json"
	"time"
)

// ExchangeRecord is the long-term archive row for one exchange. The live
// session lives in Redis; records land here asynchronously via the archive
// queue. Sources is stored as a JSON array for portability.
type ExchangeRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID string    `gorm:"size:64;not null;uniqueIndex" json:"message_id"`
	Scope     string    `gorm:"size:32;not null;index" json:"scope"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Sources   string    `gorm:"type:text" json:"sources,omitempty"` // JSON array of Source
	Feedback  string    `gorm:"size:16" json:"feedback"`
	AskedAt   time.Time `json:"asked_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceList returns the parsed source slice; empty on parse error.
func (r *ExchangeRecord) SourceList() []Source {
	if r.Sources == "" {
		return nil
	}
	var v []Source
	_ = json.Unmarshal([]byte(r.Sources), &v)
	return v
}

// SetSources stores the sources as JSON.
func (r *ExchangeRecord) SetSources(sources []Source) {
	if len(sources) == 0 {
		r.Sources = ""
		return
	}
	b, _ := json.Marshal(sources)
	r.Sources = string(b)
}

// ExchangeRecordFromMessage builds the archive row for a completed exchange.
func ExchangeRecordFromMessage(scope string, msg Message) ExchangeRecord {
	rec := ExchangeRecord{
		MessageID: msg.ID,
		Scope:     scope,
		Query:     msg.Query,
		Answer:    msg.Answer,
		Feedback:  msg.Feedback,
		AskedAt:   msg.Timestamp,
	}
	rec.SetSources(msg.Sources)
	return rec
}
