package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ravensperch/internal/device"
	"ravensperch/internal/model"
	"ravensperch/internal/reconcile"
	"ravensperch/internal/store"
)

type fakeProber struct{}

func (fakeProber) Fingerprint(ctx context.Context, devicePath string) (model.Fingerprint, error) {
	return model.Fingerprint{}, nil
}

func (fakeProber) Capabilities(ctx context.Context, devicePath string) (model.Capabilities, error) {
	return model.Capabilities{}, nil
}

type fakeConvergence struct{}

func (fakeConvergence) Reconcile(ctx context.Context, cameras []model.Camera) (map[string]error, bool) {
	return map[string]error{}, false
}

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tracker := device.New(fakeProber{}, 10*time.Millisecond)
	t.Cleanup(tracker.Close)

	r := reconcile.New(st, tracker, nil, fakeConvergence{}, fakeConvergence{}, time.Hour, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	return NewHandler(st, r, nil), st
}

func newTestEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.Register(engine)
	return engine
}

func TestListCameras_Empty(t *testing.T) {
	h, _ := newTestHandler(t)
	engine := newTestEngine(h)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Cameras []cameraResponse `json:"cameras"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if len(body.Cameras) != 0 {
		t.Errorf("cameras = %+v, want none", body.Cameras)
	}
}

func TestUpdateCamera_AppliesPartialFields(t *testing.T) {
	h, st := newTestHandler(t)
	engine := newTestEngine(h)

	if err := st.Upsert(model.Camera{UID: "deadbeefcafebabe", FriendlyName: "old", Enabled: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	body, _ := json.Marshal(updateCameraRequest{FriendlyName: strPtr("new_name")})
	req := httptest.NewRequest(http.MethodPatch, "/api/cameras/deadbeefcafebabe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	cam, err := st.Get("deadbeefcafebabe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cam.FriendlyName != "new_name" {
		t.Errorf("FriendlyName = %q, want new_name", cam.FriendlyName)
	}
}

func TestUpdateCamera_UnknownUIDReturns404(t *testing.T) {
	h, _ := newTestHandler(t)
	engine := newTestEngine(h)

	req := httptest.NewRequest(http.MethodPatch, "/api/cameras/neverexisted00000", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteCamera_RemovesRecord(t *testing.T) {
	h, st := newTestHandler(t)
	engine := newTestEngine(h)

	if err := st.Upsert(model.Camera{UID: "deadbeefcafebabe", Enabled: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/cameras/deadbeefcafebabe", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := st.Get("deadbeefcafebabe"); err == nil {
		t.Error("Get() succeeded after delete, want not found")
	}
}

func TestAddDevice_RequiresDevicePath(t *testing.T) {
	h, _ := newTestHandler(t)
	engine := newTestEngine(h)

	req := httptest.NewRequest(http.MethodPost, "/api/devices", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatus_ReportsCameraCount(t *testing.T) {
	h, st := newTestHandler(t)
	engine := newTestEngine(h)
	if err := st.Upsert(model.Camera{UID: "deadbeefcafebabe", Enabled: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if resp.Cameras != 1 {
		t.Errorf("Cameras = %d, want 1", resp.Cameras)
	}
}

func strPtr(s string) *string { return &s }
