package synth

import (
	"strings"
	"testing"

	"ravensperch/internal/model"
)

func baseRecord() model.Camera {
	return model.Camera{
		UID:        "abc123",
		DevicePath: "/dev/video0",
		Format:     "mjpeg",
		Resolution: "1280x720",
		Framerate:  30,
		BitrateBps: 4_000_000,
		Encoder:    model.EncoderSoftware,
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	r := baseRecord()
	a := Synthesize(r, "rtsp://127.0.0.1:8554")
	b := Synthesize(r, "rtsp://127.0.0.1:8554")
	if a != b {
		t.Fatalf("Synthesize() not deterministic:\n%s\nvs\n%s", a, b)
	}
}

func TestSynthesize_FilterOrder(t *testing.T) {
	r := baseRecord()
	r.Rotation = model.Rotation90
	r.OverlayPath = "/tmp/overlay.txt"

	cmd := Synthesize(r, "rtsp://127.0.0.1:8554")

	formatIdx := strings.Index(cmd, "format=yuv420p")
	transposeIdx := strings.Index(cmd, "transpose=1")
	drawtextIdx := strings.Index(cmd, "drawtext=")

	if formatIdx < 0 || transposeIdx < 0 || drawtextIdx < 0 {
		t.Fatalf("missing expected filter in command: %s", cmd)
	}
	if !(formatIdx < transposeIdx && transposeIdx < drawtextIdx) {
		t.Errorf("filters out of order: format=%d transpose=%d drawtext=%d", formatIdx, transposeIdx, drawtextIdx)
	}
}

func TestSynthesize_VAAPIHwuploadLast(t *testing.T) {
	r := baseRecord()
	r.Encoder = model.EncoderVAAPI

	cmd := Synthesize(r, "rtsp://127.0.0.1:8554")

	nv12Idx := strings.Index(cmd, "format=nv12")
	hwuploadIdx := strings.Index(cmd, "hwupload")

	if nv12Idx < 0 || hwuploadIdx < 0 {
		t.Fatalf("missing expected vaapi filter: %s", cmd)
	}
	if hwuploadIdx < nv12Idx {
		t.Errorf("hwupload must come after format=nv12: %s", cmd)
	}
	if !strings.Contains(cmd, "-vaapi_device /dev/dri/renderD128") {
		t.Errorf("missing vaapi device flag: %s", cmd)
	}
}

func TestSynthesize_OutputURLKeyedByUID(t *testing.T) {
	r := baseRecord()
	cmd := Synthesize(r, "rtsp://127.0.0.1:8554")
	if !strings.HasSuffix(strings.TrimSpace(cmd), "rtsp://127.0.0.1:8554/abc123") {
		t.Errorf("command does not end with UID-keyed output URL: %s", cmd)
	}
}

func TestHash_Deterministic(t *testing.T) {
	r := baseRecord()
	cmd := Synthesize(r, "rtsp://127.0.0.1:8554")
	if Hash(cmd) != Hash(cmd) {
		t.Error("Hash() not deterministic")
	}

	r2 := baseRecord()
	r2.BitrateBps = 2_000_000
	cmd2 := Synthesize(r2, "rtsp://127.0.0.1:8554")
	if Hash(cmd) == Hash(cmd2) {
		t.Error("Hash() collided for different commands")
	}
}
