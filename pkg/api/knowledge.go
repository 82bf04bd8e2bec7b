package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// UploadExtensions lists the file types the backend can index.
var UploadExtensions = []string{"txt", "pdf", "csv"}

// IsUploadable reports whether filename has an extension in UploadExtensions.
func IsUploadable(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return slices.Contains(UploadExtensions, ext)
}

// UploadKnowledgeFile adds a document to a collection, creating the
// collection when it does not exist yet.
func (c *Client) UploadKnowledgeFile(ctx context.Context, filename string, content io.Reader, collection string) (*UploadResult, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("creating multipart file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.WriteField("collection_name", collection); err != nil {
		return nil, fmt.Errorf("writing collection field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var result UploadResult
	if err := c.do(ctx, http.MethodPost, "/knowledge/upload", &buf, mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListCollections returns the names of the current user's collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Collections []string `json:"collections"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/knowledge/collections", nil, &resp); err != nil {
		return nil, err
	}

	if resp.Collections == nil {
		return []string{}, nil
	}

	return resp.Collections, nil
}

// DeleteCollection removes a collection and returns the backend's message.
func (c *Client) DeleteCollection(ctx context.Context, name string) (string, error) {
	var resp statusMessage
	if err := c.doJSON(ctx, http.MethodDelete, "/knowledge/collections/"+url.PathEscape(name), nil, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}
