package paperless

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// listAll follows a paginated list exhaustively, starting at firstURL, and
// returns the aggregated results. Follow-up pages use the absolute URL from
// the "next" pointer.
func listAll[T any](ctx context.Context, c *Client, firstURL string) ([]T, error) {
	var out []T

	url := firstURL
	for url != "" {
		var pg page[T]
		resp, err := c.http.R().
			SetContext(ctx).
			SetSuccessResult(&pg).
			Get(url)
		if err := handleAPIError(resp, err, "list "+firstURL); err != nil {
			return nil, err
		}

		out = append(out, pg.Results...)
		if pg.Next == nil || *pg.Next == "" {
			break
		}
		url = *pg.Next
	}

	return out, nil
}

func (c *Client) cacheKey(kind, name string) string {
	return kind + ":" + strings.ToLower(name)
}

// ResolveTag returns the id of an existing tag by case-insensitive name match.
// Returns ErrTagNotFound if no tag matches; it never creates one.
func (c *Client) ResolveTag(ctx context.Context, name string) (int64, error) {
	key := c.cacheKey("tag", name)
	if id, ok := c.resolved.Get(key); ok {
		return id, nil
	}

	tags, err := listAll[Tag](ctx, c, listURL(epTags))
	if err != nil {
		return 0, err
	}

	for _, t := range tags {
		if strings.EqualFold(t.Name, name) {
			c.resolved.Add(key, t.ID)
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrTagNotFound, name)
}

// GetOrCreateTag resolves a tag by case-insensitive name, creating it if absent.
func (c *Client) GetOrCreateTag(ctx context.Context, name string) (int64, error) {
	id, err := c.ResolveTag(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return 0, err
	}

	var created Tag
	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		SetSuccessResult(&created).
		Post(epTags)
	if err := handleAPIError(resp, reqErr, "create tag"); err != nil {
		return 0, err
	}

	c.resolved.Add(c.cacheKey("tag", name), created.ID)
	return created.ID, nil
}

// GetOrCreateCorrespondent resolves a correspondent by case-insensitive name,
// creating it if absent.
func (c *Client) GetOrCreateCorrespondent(ctx context.Context, name string) (int64, error) {
	key := c.cacheKey("correspondent", name)
	if id, ok := c.resolved.Get(key); ok {
		return id, nil
	}

	all, err := listAll[Correspondent](ctx, c, listURL(epCorrespondents))
	if err != nil {
		return 0, err
	}
	for _, cr := range all {
		if strings.EqualFold(cr.Name, name) {
			c.resolved.Add(key, cr.ID)
			return cr.ID, nil
		}
	}

	var created Correspondent
	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		SetSuccessResult(&created).
		Post(epCorrespondents)
	if err := handleAPIError(resp, reqErr, "create correspondent"); err != nil {
		return 0, err
	}

	c.resolved.Add(key, created.ID)
	return created.ID, nil
}

// GetOrCreateDocumentType resolves a document type by exact name, creating it
// if absent. Document type names are case-sensitive in Paperless.
func (c *Client) GetOrCreateDocumentType(ctx context.Context, name string) (int64, error) {
	key := "doctype:" + name
	if id, ok := c.resolved.Get(key); ok {
		return id, nil
	}

	all, err := listAll[DocumentType](ctx, c, listURL(epDocumentTypes))
	if err != nil {
		return 0, err
	}
	for _, dt := range all {
		if dt.Name == name {
			c.resolved.Add(key, dt.ID)
			return dt.ID, nil
		}
	}

	var created DocumentType
	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		SetSuccessResult(&created).
		Post(epDocumentTypes)
	if err := handleAPIError(resp, reqErr, "create document type"); err != nil {
		return 0, err
	}

	c.resolved.Add(key, created.ID)
	return created.ID, nil
}

func listURL(endpoint string) string {
	return fmt.Sprintf("%s?page_size=%d", endpoint, defaultPageSize)
}
