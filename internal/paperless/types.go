package paperless

// Tag is a Paperless-ngx tag.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Correspondent is a Paperless-ngx correspondent.
type Correspondent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DocumentType is a Paperless-ngx document type.
type DocumentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Document is a Paperless-ngx document record. Only the fields the bridge
// reads are mapped.
type Document struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Tags          []int64 `json:"tags"`
	Correspondent *int64  `json:"correspondent"`
	DocumentType  *int64  `json:"document_type"`
	Created       string  `json:"created,omitempty"`
	Checksum      string  `json:"checksum,omitempty"`
}

// page is one page of a paginated list response. Next holds the absolute URL
// of the following page, or null on the last one.
type page[T any] struct {
	Count   int64   `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// Task status values reported by /api/tasks/.
const (
	taskStatusSuccess = "SUCCESS"
	taskStatusFailure = "FAILURE"
)

type task struct {
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	Result          string `json:"result,omitempty"`
	RelatedDocument *int64 `json:"related_document"`
}

// UploadParams describes a new document to create via post_document.
type UploadParams struct {
	Filename        string
	Data            []byte
	TagIDs          []int64
	CorrespondentID *int64
	DocumentTypeID  *int64
	// CreatedDate is the document creation date as YYYY-MM-DD, or empty.
	CreatedDate string
}
