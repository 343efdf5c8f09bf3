package models

import "time"

const (
	MinThreatLevel = 0
	MaxThreatLevel = 5
)

// Source is a suspect source record.
type Source struct {
	ID          int64
	Name        string
	URL         string
	ThreatLevel int
	Description string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// SourceField names a searchable and editable source attribute.
type SourceField string

const (
	SourceFieldName        SourceField = "name"
	SourceFieldURL         SourceField = "url"
	SourceFieldDescription SourceField = "description"
	SourceFieldThreatLevel SourceField = "threat_level"
)

var SourceFields = []SourceField{SourceFieldName, SourceFieldURL, SourceFieldDescription, SourceFieldThreatLevel}

func ParseSourceField(s string) (SourceField, bool) {
	for _, f := range SourceFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}
