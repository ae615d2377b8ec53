package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// Context errors.
var (
	// ErrNilProvider is returned when NewContext is called with a nil provider.
	ErrNilProvider = errors.New("gpu: device provider is nil")

	// ErrNoHALAccess is returned when the provider does not expose HAL types.
	ErrNoHALAccess = errors.New("gpu: provider does not expose HAL device and queue")

	// ErrContextReleased is returned when operating on a released context.
	ErrContextReleased = errors.New("gpu: context has been released")
)

// halProvider is the accessor pair a provider must expose in addition to
// gpucontext.DeviceProvider. gogpu's App context implements both.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Context holds the shared GPU device and queue for the keying pipeline.
//
// The device is borrowed from the host, never owned: Release drops the
// references without destroying anything. One Context can back any number
// of Renderers, though the compositor only ever drives one at a time.
type Context struct {
	provider gpucontext.DeviceProvider
	device   hal.Device
	queue    hal.Queue
	released bool
}

// NewContext wraps the host's GPU device for use by the keying pipeline.
// The provider must expose HAL access (HalDevice/HalQueue returning
// hal.Device and hal.Queue).
func NewContext(provider gpucontext.DeviceProvider) (*Context, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALAccess)
	}
	return &Context{provider: provider, device: device, queue: queue}, nil
}

// NewContextFromHAL wraps a raw HAL device and queue directly. Used by tests
// and hosts that manage wgpu/hal themselves without a gpucontext provider.
func NewContextFromHAL(device hal.Device, queue hal.Queue) (*Context, error) {
	if device == nil || queue == nil {
		return nil, ErrNilProvider
	}
	return &Context{device: device, queue: queue}, nil
}

// Device returns the borrowed HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the borrowed HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// Released reports whether Release has been called.
func (c *Context) Released() bool { return c.released }

// Release drops the device references. The device itself belongs to the
// host and is not destroyed. Idempotent.
func (c *Context) Release() {
	c.device = nil
	c.queue = nil
	c.provider = nil
	c.released = true
}
