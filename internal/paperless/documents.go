package paperless

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Upload creates a new document via the asynchronous post_document protocol
// and blocks until the remote consumption task completes, returning the new
// document id. The two-phase submit/poll dance is fully encapsulated here so
// callers see a single operation with a single failure mode.
func (c *Client) Upload(ctx context.Context, p *UploadParams) (int64, error) {
	form := url.Values{}
	for _, id := range p.TagIDs {
		form.Add("tags", strconv.FormatInt(id, 10))
	}
	if p.CorrespondentID != nil {
		form.Set("correspondent", strconv.FormatInt(*p.CorrespondentID, 10))
	}
	if p.DocumentTypeID != nil {
		form.Set("document_type", strconv.FormatInt(*p.DocumentTypeID, 10))
	}
	if p.CreatedDate != "" {
		form.Set("created", p.CreatedDate)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFileBytes("document", p.Filename, p.Data).
		SetFormDataFromValues(form).
		Post(epPostDocument)
	if err := handleAPIError(resp, err, "post document"); err != nil {
		return 0, err
	}

	// The create call returns a task id, not a document id.
	taskID := strings.Trim(strings.TrimSpace(resp.String()), `"`)
	if taskID == "" {
		return 0, fmt.Errorf("paperless: post document returned empty task id")
	}

	return c.waitForTask(ctx, taskID)
}

// waitForTask polls the tasks endpoint until the task reaches a terminal
// status or the task timeout elapses.
func (c *Client) waitForTask(ctx context.Context, taskID string) (int64, error) {
	deadline := time.Now().Add(c.taskTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}

		var tasks []task
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("task_id", taskID).
			SetSuccessResult(&tasks).
			Get(epTasks)
		if err := handleAPIError(resp, err, "task status"); err != nil {
			return 0, err
		}

		if len(tasks) == 0 {
			// Task not visible yet; keep polling.
			continue
		}

		t := tasks[0]
		switch t.Status {
		case taskStatusSuccess:
			if t.RelatedDocument == nil {
				return 0, fmt.Errorf("%w (task %s)", ErrMissingDocumentID, taskID)
			}
			return *t.RelatedDocument, nil
		case taskStatusFailure:
			return 0, &TaskError{TaskID: taskID, Result: t.Result}
		}
	}

	return 0, fmt.Errorf("%w (task %s after %s)", ErrTaskTimeout, taskID, c.taskTimeout)
}

// Patch applies a partial field update to a document.
func (c *Client) Patch(ctx context.Context, docID int64, fields map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fields).
		Patch(fmt.Sprintf("%s%d/", epDocuments, docID))
	return handleAPIError(resp, err, "patch document")
}

// GetDocument fetches a single document record.
func (c *Client) GetDocument(ctx context.Context, docID int64) (*Document, error) {
	var doc Document
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&doc).
		Get(fmt.Sprintf("%s%d/", epDocuments, docID))
	if err := handleAPIError(resp, err, "get document"); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocumentsByTag returns all documents carrying the given tag, following
// pagination exhaustively.
func (c *Client) ListDocumentsByTag(ctx context.Context, tagID int64) ([]Document, error) {
	return listAll[Document](ctx, c, fmt.Sprintf("%s?tags__id__in=%d&page_size=%d", epDocuments, tagID, defaultPageSize))
}

// Download fetches the original file of a document. The suggested filename is
// extracted from the Content-Disposition header when present.
func (c *Client) Download(ctx context.Context, docID int64) ([]byte, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s%d/download/", epDocuments, docID))
	if err := handleAPIError(resp, err, "download document"); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("document_%d.pdf", docID)
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				filename = name
			}
		}
	}

	return resp.Bytes(), filename, nil
}
