package entities

import "time"

// UploadMetadata is the set of values carried through the protocol as
// base64-encoded "key value" pairs in the Upload-Metadata header.
type UploadMetadata struct {
	Filename         string
	Filetype         string
	WithFilename     string
	OnDuplicate      string
	DestinationPath  string
	MultipartID      string
	PartIndex        string
	TotalParts       string
	OriginalFileSize string
}

// IsMultipartPart reports whether this metadata describes one part of a
// multipart logical file: all three of multipartId/partIndex/totalParts
// must be present and totalParts must not be "1".
func (m UploadMetadata) IsMultipartPart() bool {
	return m.MultipartID != "" && m.PartIndex != "" && m.TotalParts != "" && m.TotalParts != "1"
}

// UploadInfo is the staging sidecar persisted alongside every upload's
// payload file.
type UploadInfo struct {
	ID           string         `json:"id"`
	Size         int64          `json:"size"`
	Offset       int64          `json:"offset"`
	Metadata     UploadMetadata `json:"metadata"`
	CreationDate time.Time      `json:"creation_date"`
}

// Complete reports whether the payload file backing this sidecar has
// received every byte it was created for.
func (u UploadInfo) Complete() bool {
	return u.Offset >= u.Size
}

// MultipartAssembly tracks the sibling parts of one logical multipart
// file. It lives only in server-process memory; see the janitor/
// recovery caveats in SPEC_FULL.md §4.8.
type MultipartAssembly struct {
	TotalParts int
	Metadata   UploadMetadata
	Parts      map[int]string // partIndex -> staging id
}

// QueuedFile is the client scheduler's unit of work (C6). ID is
// generated client-side and is orthogonal to the staging id(s) the
// server assigns once sessions are created.
type QueuedFile struct {
	ID              string
	Path            string
	Size            int64
	Status          string
	UploadedBytes   int64
	Progress        int
	Filename        string
	Filetype        string
	WithFilename    string
	OnDuplicate     string
	DestinationPath string
	Err             error
}

// UploadRecord is the best-effort ledger row written after a logical
// file finalizes. It is never consulted by the protocol handlers — it
// exists purely for audit/observability (see SPEC_FULL.md §4.7).
type UploadRecord struct {
	ID              string `gorm:"primaryKey"`
	Filename        string
	DestinationPath string
	Size            int64
	SHA256          string
	MultipartID     string
	TotalParts      int
	CreatedAt       time.Time
	CompletedAt     time.Time
}
