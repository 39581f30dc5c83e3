package model

import "time"

// DocumentStatus represents the processing state of an uploaded document.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentProcessed DocumentStatus = "processed"
	DocumentFailed    DocumentStatus = "failed"
)

// Document is a stored legal document awaiting or holding extracted text.
type Document struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	ContentType  string         `json:"content_type"`
	Size         int64          `json:"size"`
	FilePath     string         `json:"file_path"`
	DocumentType string         `json:"document_type"`
	Status       DocumentStatus `json:"status"`
	TextContent  string         `json:"text_content,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
