package profile

import (
	"testing"

	"ravensperch/internal/hardware"
	"ravensperch/internal/model"
)

func s1Capabilities() model.Capabilities {
	return model.Capabilities{
		"mjpeg": model.ResolutionSet{
			"1280x720": []int{30, 15},
			"640x480":  []int{30},
		},
	}
}

func TestSelect_S1FirstPlugIn(t *testing.T) {
	// Store empty; device with capabilities {mjpeg: {1280x720: [30,15], 640x480: [30]}},
	// CPU score 10, no HW encoder. Expected per spec: format=mjpeg,
	// resolution=1280x720, framerate=30, bitrate=4M, encoder=software.
	p := Select(s1Capabilities(), 10, Overrides{}, hardware.Encoders{Software: true})

	if p.Format != "mjpeg" {
		t.Errorf("Format = %q, want mjpeg", p.Format)
	}
	if p.Resolution != "1280x720" {
		t.Errorf("Resolution = %q, want 1280x720", p.Resolution)
	}
	if p.Framerate != 30 {
		t.Errorf("Framerate = %d, want 30", p.Framerate)
	}
	if p.BitrateBps != 4_000_000 {
		t.Errorf("BitrateBps = %d, want 4000000", p.BitrateBps)
	}
	if p.Encoder != model.EncoderSoftware {
		t.Errorf("Encoder = %q, want software", p.Encoder)
	}
}

func TestSelect_TierRoundTrip(t *testing.T) {
	caps := model.Capabilities{
		"mjpeg": model.ResolutionSet{
			"1920x1080": []int{60, 30, 15, 10},
			"1280x720":  []int{60, 30, 15, 10},
			"640x480":   []int{60, 30, 15, 10},
		},
	}

	cases := []struct {
		score          int
		wantResolution string
		wantFramerate  int
	}{
		{2, "640x480", 10},
		{5, "640x480", 15},
		{7, "1280x720", 15},
		{9, "1280x720", 15},
		{10, "1280x720", 30},
	}

	for _, tc := range cases {
		p := Select(caps, tc.score, Overrides{}, hardware.Encoders{Software: true})
		if p.Resolution != tc.wantResolution {
			t.Errorf("score %d: Resolution = %q, want %q", tc.score, p.Resolution, tc.wantResolution)
		}
		if p.Framerate != tc.wantFramerate {
			t.Errorf("score %d: Framerate = %d, want %d", tc.score, p.Framerate, tc.wantFramerate)
		}
	}
}

func TestSelect_OverrideWinsWhenPresent(t *testing.T) {
	caps := model.Capabilities{
		"mjpeg": model.ResolutionSet{"1280x720": []int{30}},
		"h264":  model.ResolutionSet{"640x480": []int{60, 30}},
	}

	p := Select(caps, 10, Overrides{Format: "h264", Resolution: "640x480", Framerate: 30}, hardware.Encoders{Software: true})

	if p.Format != "h264" || p.Resolution != "640x480" || p.Framerate != 30 {
		t.Errorf("got %+v, want h264/640x480/30", p)
	}
	if p.Warning != "" {
		t.Errorf("Warning = %q, want empty when override is satisfiable", p.Warning)
	}
}

func TestSelect_OverrideFallsBackAndWarns(t *testing.T) {
	caps := s1Capabilities()
	p := Select(caps, 10, Overrides{Format: "h264"}, hardware.Encoders{Software: true})

	if p.Format != "mjpeg" {
		t.Errorf("Format = %q, want mjpeg fallback", p.Format)
	}
	if p.Warning == "" {
		t.Error("Warning = \"\", want non-empty when override is unsatisfiable")
	}
}

func TestSelect_HardwareEncoderPreferred(t *testing.T) {
	p := Select(s1Capabilities(), 10, Overrides{}, hardware.Encoders{VAAPI: true, Software: true})
	if p.Encoder != model.EncoderVAAPI {
		t.Errorf("Encoder = %q, want vaapi", p.Encoder)
	}
}

func TestChooseFramerate_FallsBackToSmallest(t *testing.T) {
	got := chooseFramerate([]int{60, 30}, 10, 0)
	if got != 30 {
		t.Errorf("chooseFramerate() = %d, want 30 (smallest available, none <= target)", got)
	}
}
