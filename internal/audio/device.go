package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes an available audio input device.
type Device struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
}

// Init initializes the PortAudio host. It must be called once before any
// device or stream operation; pair with Terminate on shutdown.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio subsystem: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio host.
func Terminate() error {
	return portaudio.Terminate()
}

// InputDevices lists all input-capable devices. The device list is queried
// fresh on every call since devices can be hot-plugged. An empty result is
// not an error; callers decide how to surface "no input devices found".
func InputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceQuery, err)
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// deviceInfo resolves a device ID to its PortAudio info. A negative ID
// selects the host's default input device.
func deviceInfo(id int) (*portaudio.DeviceInfo, error) {
	if id < 0 {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceQuery, err)
		}
		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceQuery, err)
	}
	if id >= len(infos) {
		return nil, fmt.Errorf("%w: device %d not found", ErrDeviceQuery, id)
	}
	return infos[id], nil
}
