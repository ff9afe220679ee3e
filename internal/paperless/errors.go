package paperless

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// ErrTaskTimeout is returned when an upload task does not reach a terminal
	// status within the configured timeout. The remote task keeps running.
	ErrTaskTimeout = errors.New("paperless: upload task timed out")

	// ErrMissingDocumentID is returned when a task reports SUCCESS but carries
	// no related document id. This is a protocol-contract violation, distinct
	// from an ordinary task failure, and is not worth retrying.
	ErrMissingDocumentID = errors.New("paperless: task succeeded without a document id")

	// ErrTagNotFound is returned by ResolveTag when the tag does not exist.
	ErrTagNotFound = errors.New("paperless: tag not found")
)

// TaskError is a remote-side processing failure reported by the tasks endpoint.
type TaskError struct {
	TaskID string
	Result string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("paperless: task %s failed: %s", e.TaskID, e.Result)
}

// APIError is an unexpected response from the Paperless API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paperless: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// handleAPIError folds the transport error and the HTTP error state into a
// single error, or nil on success.
func handleAPIError(resp *req.Response, requestErr error, op string) error {
	if requestErr != nil {
		return fmt.Errorf("paperless: %s: %w", op, requestErr)
	}

	if resp.IsErrorState() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return &APIError{Op: op, StatusCode: resp.GetStatusCode(), Body: body}
	}

	return nil
}
