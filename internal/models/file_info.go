package models

import "time"

// FileInfo represents metadata about a file held in temporary upload storage.
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Status      string    `json:"status"` // "uploaded", "processed", "error"
}
