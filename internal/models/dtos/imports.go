package dtos

import (
	"encoding/json"
	"time"

	gormModels "fraternitybase/registry/internal/models/gorm"
)

// ImportBatchResponse is the API view of an import ledger entry
type ImportBatchResponse struct {
	ID          string          `json:"id"`
	ChapterID   string          `json:"chapter_id"`
	Chapter     string          `json:"chapter,omitempty"`
	FileName    string          `json:"file_name"`
	FileHash    string          `json:"file_hash"`
	ImportType  string          `json:"import_type"`
	TotalRows   int             `json:"total_rows"`
	Imported    int             `json:"imported"`
	Updated     int             `json:"updated"`
	Skipped     int             `json:"skipped"`
	Errors      int             `json:"errors"`
	ErrorLog    json.RawMessage `json:"error_log,omitempty"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func NewImportBatchResponse(b *gormModels.ImportBatch) ImportBatchResponse {
	resp := ImportBatchResponse{
		ID:          b.ID,
		ChapterID:   b.ChapterID,
		FileName:    b.FileName,
		FileHash:    b.FileHash,
		ImportType:  b.ImportType,
		TotalRows:   b.TotalRows,
		Imported:    b.ImportedCount,
		Updated:     b.UpdatedCount,
		Skipped:     b.SkippedCount,
		Errors:      b.ErrorCount,
		Status:      b.Status,
		StartedAt:   b.ImportStartedAt,
		CompletedAt: b.ImportCompletedAt,
	}
	// the log is already redacted JSON
	if b.ErrorLog != "" && json.Valid([]byte(b.ErrorLog)) {
		resp.ErrorLog = json.RawMessage(b.ErrorLog)
	}
	return resp
}

type LinkChapterRequest struct {
	Chapter    string `json:"chapter"`
	University string `json:"university"`
}

// ChapterStats is a point-in-time summary of one chapter's membership.
type ChapterStats struct {
	ChapterID           string               `json:"chapter_id"`
	Chapter             string               `json:"chapter"`
	Organization        string               `json:"organization"`
	Status              string               `json:"status"`
	UniversityID        *string              `json:"university_id"`
	Members             int64                `json:"members"`
	OrganizationMembers int64                `json:"organization_members"`
	LastImport          *ImportBatchResponse `json:"last_import"`
	RefreshedAt         time.Time            `json:"refreshed_at"`
}
