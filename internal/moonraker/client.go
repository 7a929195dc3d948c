// Package moonraker implements Registration Sync (§4.7): an HTTP client for
// the orchestration API's webcam registry plus the create/replace/delete
// convergence plan that drives it to the desired set of webcams.
package moonraker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"ravensperch/internal/errs"
)

// webcam is the subset of Moonraker's webcam fields this system reads and
// writes, grounded in moonraker_client.py: register_camera/update_camera.
type webcam struct {
	UID       string `json:"uid,omitempty"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Service   string `json:"service"`
	Enabled   bool   `json:"enabled"`
	StreamURL string `json:"stream_url"`
	SnapshotURL string `json:"snapshot_url"`
	Rotation  int    `json:"rotation"`
}

type webcamListResponse struct {
	Webcams []webcam `json:"webcams"`
}

type webcamItemResponse struct {
	Webcam webcam `json:"webcam"`
}

// Client talks to a single Moonraker base URL. Endpoint discovery (trying
// several candidate base URLs) lives in Detect, not here.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client bound to baseURL.
func NewClient(baseURL string, callTimeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// BaseURL reports the URL this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Available performs Moonraker's liveness call (moonraker_client.py:
// MoonrakerClient.is_available), used both by Detect and by the Reconciler's
// per-tick health probe (§4.8 step 3).
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/server/info", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListWebcams returns the observed set keyed by the webcam's unique key
// (§4.7's "Ownership"): uid -> stream URL, and uid -> name, so ComputePlan
// can tell a real rename from a never-observed name.
func (c *Client) ListWebcams(ctx context.Context) (streamURLs map[string]string, names map[string]string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/server/webcams/list", nil)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ProtocolError, err, "build webcams list request failed")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Unreachable, err, "moonraker unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errs.Newf(errs.ProtocolError, "moonraker list webcams returned %d", resp.StatusCode)
	}

	var listed webcamListResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&listed); decErr != nil {
		return nil, nil, errs.Wrap(errs.ProtocolError, decErr, "decode webcams list failed")
	}

	streamURLs = make(map[string]string, len(listed.Webcams))
	names = make(map[string]string, len(listed.Webcams))
	for _, w := range listed.Webcams {
		if w.UID == "" {
			continue
		}
		streamURLs[w.UID] = w.StreamURL
		names[w.UID] = w.Name
	}
	return streamURLs, names, nil
}

// UpsertWebcam creates or updates a webcam keyed by uid.
func (c *Client) UpsertWebcam(ctx context.Context, uid, name, streamURL, snapshotURL string, rotation int) error {
	w := webcam{
		UID:         uid,
		Name:        name,
		Location:    "printer",
		Service:     "webrtc-mediamtx",
		Enabled:     true,
		StreamURL:   streamURL,
		SnapshotURL: snapshotURL,
		Rotation:    rotation,
	}
	return c.doWebcamRequest(ctx, http.MethodPost, "/server/webcams/item?uid="+uid, w)
}

// RenameWebcam mutates only the name of an existing webcam in place, used
// when that is the only difference from the desired state (§4.7).
func (c *Client) RenameWebcam(ctx context.Context, uid, name string) error {
	return c.doWebcamRequest(ctx, http.MethodPost, "/server/webcams/item?uid="+uid, map[string]string{"name": name})
}

// DeleteWebcam removes a webcam by uid. Deleting an absent webcam is treated
// as success (idempotent per §6), matching unregister_camera's "not found"
// tolerance.
func (c *Client) DeleteWebcam(ctx context.Context, uid string) error {
	err := c.doWebcamRequest(ctx, http.MethodDelete, "/server/webcams/item?uid="+uid, nil)
	if errs.Is(err, errs.NotFound) {
		return nil
	}
	return err
}

func (c *Client) doWebcamRequest(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.ProtocolError, err, "encode request failed")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errs.Wrap(errs.ProtocolError, err, "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.Unreachable, err, "moonraker request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.NotFound, "webcam not found")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return errs.Newf(errs.BadRequest, "moonraker rejected request: %d", resp.StatusCode)
	default:
		return errs.Newf(errs.ProtocolError, "moonraker returned %d", resp.StatusCode)
	}
}
