// Package mediamtx implements the Stream Supervisor (§4.6): an HTTP client
// for the streaming server's v3 control API plus the create/delete/replace
// convergence plan that drives it to the desired set of paths.
package mediamtx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ravensperch/internal/errs"
)

// Client talks to MediaMTX's v3 HTTP control API (§6), grounded in
// stream_manager.py: MediaMTXClient.
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient constructs a Client. callTimeout bounds every individual HTTP
// call per §5's cancellation model (default 5s).
func NewClient(apiBase string, callTimeout time.Duration) *Client {
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// pathConfig is the subset of MediaMTX's path configuration this system
// reads and writes: the run-on-demand transcoder command.
type pathConfig struct {
	RunOnDemand string `json:"runOnDemand"`
}

type pathsListResponse struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

// Healthy performs a cheap liveness call with a short timeout (§4.8 step 3).
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v3/paths/list", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// ListPaths returns the observed set: path name -> configured run-on-demand
// command string (§4.6's "Observed set").
func (c *Client) ListPaths(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v3/paths/list", nil)
	if err != nil {
		return nil, errs.Wrap(errs.ProtocolError, err, "build list request failed")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Unreachable, err, "mediamtx unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Newf(errs.ProtocolError, "mediamtx list paths returned %d", resp.StatusCode)
	}

	var listed pathsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, errs.Wrap(errs.ProtocolError, err, "decode paths list failed")
	}

	observed := make(map[string]string, len(listed.Items))
	for _, item := range listed.Items {
		cfg, err := c.getPathConfig(ctx, item.Name)
		if err != nil {
			continue
		}
		observed[item.Name] = cfg.RunOnDemand
	}
	return observed, nil
}

func (c *Client) getPathConfig(ctx context.Context, name string) (pathConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v3/config/paths/get/"+name, nil)
	if err != nil {
		return pathConfig{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pathConfig{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return pathConfig{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var cfg pathConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return pathConfig{}, err
	}
	return cfg, nil
}

// CreatePath adds a new path whose on-demand command is command.
func (c *Client) CreatePath(ctx context.Context, name, command string) error {
	return c.doPathRequest(ctx, http.MethodPost, "/v3/config/paths/add/"+name, pathConfig{RunOnDemand: command})
}

// DeletePath removes a path by name. Deleting an absent path is treated as
// success (idempotent per §6).
func (c *Client) DeletePath(ctx context.Context, name string) error {
	err := c.doPathRequest(ctx, http.MethodDelete, "/v3/config/paths/delete/"+name, nil)
	if errs.Is(err, errs.NotFound) {
		return nil
	}
	return err
}

func (c *Client) doPathRequest(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.ProtocolError, err, "encode request failed")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return errs.Wrap(errs.ProtocolError, err, "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.Unreachable, err, "mediamtx request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.NotFound, "path not found")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return errs.Newf(errs.BadRequest, "mediamtx rejected request: %d", resp.StatusCode)
	default:
		return errs.Newf(errs.ProtocolError, "mediamtx returned %d", resp.StatusCode)
	}
}
