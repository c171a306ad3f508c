package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessPinFile = "file pinned successfully"
	MessageSuccessGetPin  = "pin retrieved successfully"
	MessageSuccessGetPins = "pins retrieved successfully"
	MessageFailedPinFile  = "failed to pin file"
	MessageFailedGetPin   = "failed to retrieve pin"
	MessageFailedGetPins  = "failed to retrieve pins"

	ErrPinNotFound   = errors.New("pin not found")
	ErrFileRequired  = errors.New("file is required")
	ErrInvalidDigest = errors.New("invalid content digest")
)

type (
	Pin struct {
		ID          string    `json:"id"`
		Digest      string    `json:"digest"`
		URI         string    `json:"uri"`
		URL         string    `json:"url"`
		Name        string    `json:"name"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		Owner       string    `json:"owner"`
		CreatedAt   time.Time `json:"created_at"`
	}

	PinFileRequest struct {
		File *multipart.FileHeader `form:"file"`
	}
)
