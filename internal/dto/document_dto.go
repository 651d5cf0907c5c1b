package dto

import "github.com/google/uuid"

// IngestDocumentRequest carries pre-extracted document text. Parsing binary
// formats (PDF etc.) is the caller's concern; the core only chunks and embeds.
type IngestDocumentRequest struct {
	SourceId string `json:"source_id" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type IngestDocumentResponse struct {
	SourceId string `json:"source_id"`
	Queued   bool   `json:"queued"`
}

type RemoveDocumentResponse struct {
	SourceId      string `json:"source_id"`
	RemovedChunks int    `json:"removed_chunks"`
}

// IngestJobMessage is the payload published on the ingestion topic and
// consumed by the background embedding worker.
type IngestJobMessage struct {
	UserId    uuid.UUID `json:"user_id"`
	SessionId uuid.UUID `json:"session_id"`
	SourceId  string    `json:"source_id"`
	Content   string    `json:"content"`
}
