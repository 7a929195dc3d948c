package store

import (
	"path/filepath"
	"testing"

	"ravensperch/internal/errs"
	"ravensperch/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)

	c := model.Camera{
		UID:          "cam1",
		DevicePath:   "/dev/video0",
		HardwareName: "Logitech C920",
		Fingerprint:  model.Fingerprint{VendorID: "046d", ProductID: "0825", Serial: "ABC123"},
		Capabilities: model.Capabilities{"mjpeg": model.ResolutionSet{"1280x720": {30}}},
		Format:       "mjpeg",
		Resolution:   "1280x720",
		Framerate:    30,
		Enabled:      true,
		Connected:    true,
	}

	if err := s.Upsert(c); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Get("cam1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.HardwareName != "Logitech C920" {
		t.Errorf("HardwareName = %q, want Logitech C920", got.HardwareName)
	}
	if got.Capabilities["mjpeg"]["1280x720"][0] != 30 {
		t.Errorf("Capabilities round-trip failed: %+v", got.Capabilities)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not stamped on first upsert")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.NotFound {
		t.Errorf("Get() error kind = %v, want NotFound", kind)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)

	for _, uid := range []string{"cam1", "cam2"} {
		if err := s.Upsert(model.Camera{UID: uid, Enabled: true}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", uid, err)
		}
	}

	cams, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cams) != 2 {
		t.Fatalf("List() returned %d cameras, want 2", len(cams))
	}

	if err := s.Delete("cam1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	cams, _ = s.List()
	if len(cams) != 1 {
		t.Fatalf("List() after delete returned %d cameras, want 1", len(cams))
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetSetting("base_host")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if v != "" {
		t.Errorf("GetSetting() on unset key = %q, want empty", v)
	}

	if err := s.SetSetting("base_host", "192.168.1.5"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	v, _ = s.GetSetting("base_host")
	if v != "192.168.1.5" {
		t.Errorf("GetSetting() = %q, want 192.168.1.5", v)
	}
}

func TestAppendLog(t *testing.T) {
	s := newTestStore(t)
	uid := "cam1"
	if err := s.AppendLog("info", "reconcile tick completed", &uid); err != nil {
		t.Fatalf("AppendLog() error = %v", err)
	}
}
