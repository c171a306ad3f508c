package entities

import (
	"github.com/google/uuid"
)

type ReportAnalysis struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Owner      string    `gorm:"size:42;index" json:"owner"`
	Source     string    `gorm:"size:8" json:"source"`
	FileDigest string    `gorm:"size:64" json:"file_digest"`
	FileURI    string    `json:"file_uri"`
	Transcript string    `gorm:"type:text" json:"transcript"`
	Result     string    `gorm:"type:jsonb" json:"result"`
	Timestamp
}
