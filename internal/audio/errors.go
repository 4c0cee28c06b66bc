package audio

import "errors"

var (
	// ErrDeviceQuery indicates the audio subsystem could not be queried.
	ErrDeviceQuery = errors.New("audio device query failed")

	// ErrUnsupportedFormat indicates the device rejected the requested
	// sample rate, bit depth or channel count.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDeviceLost indicates the input device disappeared mid-stream.
	ErrDeviceLost = errors.New("audio device lost")
)
