package device

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ravensperch/internal/errs"
	"ravensperch/internal/model"
)

// videoNumRe extracts the node number from /dev/videoN.
var videoNumRe = regexp.MustCompile(`^/dev/video(\d+)$`)

// sysfsFingerprint walks /sys/class/video4linux/videoN/device towards the
// owning USB device directory to read idVendor/idProduct/serial, grounded in
// camera_manager.py: get_device_info's sysfs serial walk. busPath is derived
// from the resolved symlink path, which encodes the USB bus/port topology.
func sysfsFingerprint(devicePath string) (model.Fingerprint, error) {
	m := videoNumRe.FindStringSubmatch(devicePath)
	if m == nil {
		return model.Fingerprint{}, errs.Newf(errs.ProtocolError, "not a v4l2 device path: %s", devicePath)
	}

	sysBase := fmt.Sprintf("/sys/class/video4linux/video%s/device", m[1])
	usbDir, err := findUSBDeviceDir(sysBase)
	if err != nil {
		return model.Fingerprint{}, err
	}

	fp := model.Fingerprint{
		VendorID:  readSysfsAttr(filepath.Join(usbDir, "idVendor")),
		ProductID: readSysfsAttr(filepath.Join(usbDir, "idProduct")),
		Serial:    readSysfsAttr(filepath.Join(usbDir, "serial")),
		BusPath:   busPathOf(usbDir),
	}
	if fp.VendorID == "" && fp.ProductID == "" {
		return model.Fingerprint{}, errs.New(errs.ProtocolError, "no usb identity found for "+devicePath)
	}
	return fp, nil
}

// findUSBDeviceDir walks up from a video4linux device symlink target until
// it finds a directory carrying idVendor/idProduct (the USB device node
// itself, as opposed to an interface or endpoint subdirectory).
func findUSBDeviceDir(start string) (string, error) {
	real, err := filepath.EvalSymlinks(start)
	if err != nil {
		return "", errs.Wrap(errs.Unreachable, err, "cannot resolve sysfs device link")
	}

	dir := real
	for i := 0; i < 8 && dir != "/" && dir != "."; i++ {
		if fileExists(filepath.Join(dir, "idVendor")) {
			return dir, nil
		}
		dir = filepath.Dir(dir)
	}
	return "", errs.New(errs.ProtocolError, "usb device directory not found above "+start)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readSysfsAttr(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

// busPathOf derives a stable "usb-<bus>-<port>" style tiebreaker string from
// the resolved sysfs path, used when a device has no serial (§3, §9).
func busPathOf(usbDir string) string {
	base := filepath.Base(usbDir)
	return "usb-" + base
}
