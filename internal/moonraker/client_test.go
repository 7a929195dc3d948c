package moonraker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ravensperch/internal/errs"
)

func TestClient_AvailableTrueOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if !c.Available(context.Background()) {
		t.Error("Available() = false, want true")
	}
}

func TestClient_AvailableFalseWhenUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	if c.Available(context.Background()) {
		t.Error("Available() = true, want false")
	}
}

func TestClient_ListWebcamsKeysByUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(webcamListResponse{Webcams: []webcam{
			{UID: "deadbeefcafebabe", Name: "front", StreamURL: "http://h:8889/deadbeefcafebabe/"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	streamURLs, names, err := c.ListWebcams(context.Background())
	if err != nil {
		t.Fatalf("ListWebcams() error = %v", err)
	}
	if streamURLs["deadbeefcafebabe"] != "http://h:8889/deadbeefcafebabe/" {
		t.Errorf("streamURLs = %+v", streamURLs)
	}
	if names["deadbeefcafebabe"] != "front" {
		t.Errorf("names = %+v", names)
	}
}

func TestClient_DeleteWebcamTreatsNotFoundAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.DeleteWebcam(context.Background(), "deadbeefcafebabe"); err != nil {
		t.Errorf("DeleteWebcam() error = %v, want nil", err)
	}
}

func TestClient_UpsertWebcamRejectedAsBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.UpsertWebcam(context.Background(), "deadbeefcafebabe", "cam", "http://h:8889/deadbeefcafebabe/", "http://h/cameras/snapshot/deadbeefcafebabe.jpg", 0)
	if !errs.Is(err, errs.BadRequest) {
		t.Errorf("err = %v, want errs.BadRequest", err)
	}
}

func TestDetect_ReturnsFirstAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := Detect(context.Background(), []string{"http://127.0.0.1:1", srv.URL}, time.Second)
	if c == nil {
		t.Fatal("Detect() = nil, want a client")
	}
	if c.BaseURL() != srv.URL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), srv.URL)
	}
}

func TestDetect_ReturnsNilWhenNoneAvailable(t *testing.T) {
	c := Detect(context.Background(), []string{"http://127.0.0.1:1"}, time.Second)
	if c != nil {
		t.Errorf("Detect() = %v, want nil", c)
	}
}
