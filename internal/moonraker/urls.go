package moonraker

import "fmt"

// StreamURL builds the WebRTC URL Moonraker should embed for uid, grounded
// in moonraker_client.py: build_stream_url. webrtcPort is the streaming
// server's WebRTC port (§6's URL conventions, default 8889).
func StreamURL(host string, webrtcPort int, uid string) string {
	return fmt.Sprintf("http://%s:%d/%s/", host, webrtcPort, uid)
}

// SnapshotURL builds the JPEG snapshot URL for uid, served by the external
// snapshot component (§6's URL conventions), grounded in
// moonraker_client.py: build_snapshot_url.
func SnapshotURL(host, uid string) string {
	return fmt.Sprintf("http://%s/cameras/snapshot/%s.jpg", host, uid)
}
