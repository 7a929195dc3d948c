// Package fingerprint derives the stable UID of a physical camera from its
// hardware fingerprint. This is the pure function property §8.1 requires:
// uid(f1) == uid(f2) iff f1 and f2 agree on vendor, product and serial (and,
// only when there is no serial, on bus path), deterministic across process
// restarts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ravensperch/internal/model"
)

// uidLength is the number of hex characters kept from the digest. 16 hex
// chars (64 bits) is short enough to be a friendly path/webcam key and long
// enough that accidental collisions are not a practical concern.
const uidLength = 16

// canonical renders the fingerprint into the exact string that gets hashed.
// Field order and separators are fixed forever: changing them would change
// every UID already persisted in the Settings Store. The bus path is left
// empty when a serial is present, so a serialled camera keeps its UID when
// re-plugged into another port.
func canonical(f model.Fingerprint) string {
	busPath := f.BusPath
	if f.HasSerial() {
		busPath = ""
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", f.VendorID, f.ProductID, f.Serial, busPath)
}

// UID derives the stable short identifier for a camera's fingerprint.
func UID(f model.Fingerprint) string {
	sum := sha256.Sum256([]byte(canonical(f)))
	return hex.EncodeToString(sum[:])[:uidLength]
}

// Equal reports whether two fingerprints denote the same physical identity,
// which is exactly when their UIDs match.
func Equal(a, b model.Fingerprint) bool {
	return UID(a) == UID(b)
}

// LooksLikeUID reports whether name has the shape of a UID this system
// could have produced, used by the Stream Supervisor and Registration Sync
// to decide whether a remote path/registration is owned (§4.6, §4.7) rather
// than pre-existing and untouched.
func LooksLikeUID(name string) bool {
	if len(name) != uidLength {
		return false
	}
	for _, r := range name {
		isHexDigit := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHexDigit {
			return false
		}
	}
	return true
}
