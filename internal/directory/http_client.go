// Package directory implements the external user/position directory
// collaborators: an HTTP client for a real directory service and a static,
// config-driven resolver for deployments without one.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

// Client talks to the directory service over HTTP. It implements both
// DirectoryResolver and EntityValidator.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ResolveAssignees fetches the parties currently holding a position. An
// unknown position is not an error: it resolves to nobody, and the engine's
// fail-open warning path takes over.
func (c *Client) ResolveAssignees(ctx context.Context, positionID string) ([]ports.Assignee, error) {
	endpoint := fmt.Sprintf("%s/api/v1/positions/%s/assignees", c.baseURL, url.PathEscape(positionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var assignees []ports.Assignee
		if err := json.NewDecoder(resp.Body).Decode(&assignees); err != nil {
			return nil, fmt.Errorf("decode assignees for position %q: %w", positionID, err)
		}
		return assignees, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("directory returned %d for position %q", resp.StatusCode, positionID)
	}
}

// ValidateEntity confirms the external entity a workflow concerns exists.
func (c *Client) ValidateEntity(ctx context.Context, entityType string, entityID uuid.UUID) error {
	endpoint := fmt.Sprintf("%s/api/v1/entities/%s/%s", c.baseURL, url.PathEscape(entityType), entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("entity %s/%s: %w", entityType, entityID, domain.ErrNotFound)
	default:
		return fmt.Errorf("entity check returned %d for %s/%s", resp.StatusCode, entityType, entityID)
	}
}

var (
	_ ports.DirectoryResolver = (*Client)(nil)
	_ ports.EntityValidator   = (*Client)(nil)
)
