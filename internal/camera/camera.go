package camera

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

const ImageName = "captured_image.jpg"

type Op string

const (
	OpOpen    Op = "failed to open webcam"
	OpCapture Op = "failed to capture image"
	OpWrite   Op = "failed to write image"
)

// DeviceError is returned when the camera cannot produce a frame on disk.
type DeviceError struct {
	Op  Op
	Err error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

var errNoFrame = errors.New("empty frame")

type device interface {
	IsOpened() bool
	Read(m *gocv.Mat) bool
	Close() error
}

type Camera struct {
	deviceID  int
	uploadDir string

	open  func(id int) (device, error)
	write func(path string, m gocv.Mat) bool
}

func New(deviceID int, uploadDir string) *Camera {
	return &Camera{
		deviceID:  deviceID,
		uploadDir: uploadDir,
		open: func(id int) (device, error) {
			return gocv.OpenVideoCapture(id)
		},
		write: gocv.IMWrite,
	}
}

// Path is where every capture lands; each call overwrites it.
func (c *Camera) Path() string {
	return filepath.Join(c.uploadDir, ImageName)
}

func (c *Camera) Capture(_ context.Context) (string, error) {
	dev, err := c.open(c.deviceID)
	if err != nil {
		return "", &DeviceError{Op: OpOpen, Err: err}
	}
	defer dev.Close()

	if !dev.IsOpened() {
		return "", &DeviceError{Op: OpOpen, Err: fmt.Errorf("device %d", c.deviceID)}
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := dev.Read(&frame); !ok || frame.Empty() {
		return "", &DeviceError{Op: OpCapture, Err: errNoFrame}
	}

	if err := os.MkdirAll(c.uploadDir, 0o755); err != nil {
		return "", &DeviceError{Op: OpWrite, Err: err}
	}

	path := c.Path()
	if ok := c.write(path, frame); !ok {
		return "", &DeviceError{Op: OpWrite, Err: fmt.Errorf("imwrite %s", path)}
	}

	log.Debug("Captured frame", "path", path, "cols", frame.Cols(), "rows", frame.Rows())

	return path, nil
}
