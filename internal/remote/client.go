// Package remote implements the HTTP client for the hosted records
// backend.
//
// The backend exposes a per-collection records API: paginated list,
// create, update. The client always drains every page on list, so callers
// get complete snapshots; partial fetches never reach the sync engine.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for the failure classes callers dispatch on.
var (
	// ErrCollectionNotFound means the collection does not exist on the
	// remote side. Recoverable per collection - other collections still
	// sync.
	ErrCollectionNotFound = errors.New("remote collection not found")

	// ErrNotAuthenticated means the token is missing, expired or was
	// rejected.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// listPerPage is the page size used when draining a collection.
const listPerPage = 200

// Client talks to one remote backend instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the backend at baseURL. The token is sent on
// every request; pass the empty string for anonymous probes.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the auth token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Health performs a lightweight reachability probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return nil
}

// AuthRefresh validates the current token against the backend.
// Returns ErrNotAuthenticated when the token is empty or rejected.
func (c *Client) AuthRefresh(ctx context.Context) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/users/auth-refresh", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrNotAuthenticated
	default:
		return fmt.Errorf("auth refresh returned status %d", resp.StatusCode)
	}
}

// do issues a request with auth and JSON headers set.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	return resp, nil
}

// listPage is one page of a collection listing.
type listPage[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// statusError maps a non-success response to the error taxonomy.
func statusError(collection string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("collection %s: %w", collection, ErrCollectionNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("collection %s: %w", collection, ErrNotAuthenticated)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collection %s: status %d: %s", collection, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// getFullList drains every page of a collection and returns the complete
// record set in server order.
func getFullList[T any](ctx context.Context, c *Client, collection string) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(listPerPage))
		path := fmt.Sprintf("/api/collections/%s/records?%s", collection, q.Encode())

		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := statusError(collection, resp)
			resp.Body.Close()
			return nil, err
		}

		var pageData listPage[T]
		err = json.NewDecoder(resp.Body).Decode(&pageData)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s list page %d: %w", collection, page, err)
		}

		all = append(all, pageData.Items...)

		if pageData.TotalPages == 0 || page >= pageData.TotalPages || len(pageData.Items) == 0 {
			break
		}
	}

	return all, nil
}

// createRecord creates a record and returns the server copy, which
// carries the assigned id.
func createRecord[T any](ctx context.Context, c *Client, collection string, payload T) (T, error) {
	var out T

	path := fmt.Sprintf("/api/collections/%s/records", collection)
	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return out, statusError(collection, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode created %s record: %w", collection, err)
	}
	return out, nil
}

// updateRecord overwrites a record by id and returns the server copy.
func updateRecord[T any](ctx context.Context, c *Client, collection, id string, payload T) (T, error) {
	var out T

	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, url.PathEscape(id))
	resp, err := c.do(ctx, http.MethodPatch, path, payload)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, statusError(collection, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode updated %s record: %w", collection, err)
	}
	return out, nil
}

// ListTasks returns the complete remote tasks collection.
func (c *Client) ListTasks(ctx context.Context) ([]TaskRecord, error) {
	return getFullList[TaskRecord](ctx, c, "tasks")
}

// CreateTask uploads a new task and returns the server copy.
func (c *Client) CreateTask(ctx context.Context, rec TaskRecord) (TaskRecord, error) {
	return createRecord(ctx, c, "tasks", rec)
}

// UpdateTask overwrites the remote task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, rec TaskRecord) (TaskRecord, error) {
	return updateRecord(ctx, c, "tasks", id, rec)
}

// ListNotes returns the complete remote notes collection.
func (c *Client) ListNotes(ctx context.Context) ([]NoteRecord, error) {
	return getFullList[NoteRecord](ctx, c, "notes")
}

// CreateNote uploads a new note and returns the server copy.
func (c *Client) CreateNote(ctx context.Context, rec NoteRecord) (NoteRecord, error) {
	return createRecord(ctx, c, "notes", rec)
}

// UpdateNote overwrites the remote note with the given id.
func (c *Client) UpdateNote(ctx context.Context, id string, rec NoteRecord) (NoteRecord, error) {
	return updateRecord(ctx, c, "notes", id, rec)
}
