package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"lumitone/internal/config"
)

// Initialize sets up the PortAudio subsystem. This must be called before
// any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem. This should be
// deferred immediately after Initialize().
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one capture device for listings.
type Device struct {
	ID                string
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	if deviceID == config.MinDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// GetDevices returns all devices with input channels, for the `list`
// command.
func GetDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info.MaxInputChannels == 0 {
			continue
		}
		devices = append(devices, Device{
			ID:                fmt.Sprintf("%d", i),
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			IsDefault:         defaultInput != nil && info.Name == defaultInput.Name,
		})
	}
	return devices, nil
}
