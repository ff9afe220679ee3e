// Package paperless is a thin client for the Paperless-ngx REST API, covering
// the surface the bridge needs: tag/correspondent/document-type resolution with
// get-or-create semantics, asynchronous multipart upload, metadata patching,
// tag-filtered listing and original-file download.
package paperless

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/imroc/req/v3"
	"github.com/paperbridge/paperbridge/internal/version"
)

const (
	epTags           = "/api/tags/"
	epCorrespondents = "/api/correspondents/"
	epDocumentTypes  = "/api/document_types/"
	epPostDocument   = "/api/documents/post_document/"
	epTasks          = "/api/tasks/"
	epDocuments      = "/api/documents/"

	defaultPageSize     = 100
	defaultPollInterval = 2 * time.Second
	defaultTaskTimeout  = 180 * time.Second
	resolveCacheSize    = 256
)

type Client struct {
	http         *req.Client
	pollInterval time.Duration
	taskTimeout  time.Duration

	// process-lifetime name->id cache for resolved resources, keyed by
	// "<kind>:<folded name>". Never persisted; remote state wins on restart.
	resolved *lru.Cache[string, int64]
}

// Option configures the Client.
type Option func(*Client)

// WithTaskPollInterval sets the interval between task status polls.
func WithTaskPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithTaskTimeout bounds how long an upload waits for its task to complete.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.taskTimeout = d
	}
}

// New creates a Paperless-ngx client authenticated with an API token.
func New(baseURL, token string, opts ...Option) *Client {
	cache, _ := lru.New[string, int64](resolveCacheSize)

	httpClient := req.C().
		SetBaseURL(baseURL).
		SetCommonHeader("Authorization", "Token "+token).
		SetCommonHeader("Accept", "application/json; version=9").
		SetUserAgent(version.ShortWithApp()).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetTimeout(2 * time.Minute).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	c := &Client{
		http:         httpClient,
		pollInterval: defaultPollInterval,
		taskTimeout:  defaultTaskTimeout,
		resolved:     cache,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}
