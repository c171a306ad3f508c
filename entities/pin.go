package entities

import (
	"github.com/google/uuid"
)

type Pin struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Digest      string    `gorm:"size:64;uniqueIndex" json:"digest"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Owner       string    `gorm:"size:42;index" json:"owner"`
	Timestamp
}
