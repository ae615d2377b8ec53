package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider without HAL access.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device   { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue     { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }

// halMockProvider additionally exposes the HAL accessors.
type halMockProvider struct {
	mockProvider
	device hal.Device
	queue  hal.Queue
}

func (m *halMockProvider) HalDevice() any { return m.device }
func (m *halMockProvider) HalQueue() any  { return m.queue }

func TestNewContext(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	t.Run("nil provider", func(t *testing.T) {
		if _, err := NewContext(nil); !errors.Is(err, ErrNilProvider) {
			t.Errorf("NewContext(nil) = %v, want ErrNilProvider", err)
		}
	})

	t.Run("provider without HAL access", func(t *testing.T) {
		if _, err := NewContext(&mockProvider{}); !errors.Is(err, ErrNoHALAccess) {
			t.Errorf("NewContext() = %v, want ErrNoHALAccess", err)
		}
	})

	t.Run("provider with nil HAL device", func(t *testing.T) {
		p := &halMockProvider{}
		if _, err := NewContext(p); !errors.Is(err, ErrNoHALAccess) {
			t.Errorf("NewContext() = %v, want ErrNoHALAccess", err)
		}
	})

	t.Run("provider with HAL access", func(t *testing.T) {
		p := &halMockProvider{device: device, queue: queue}
		ctx, err := NewContext(p)
		if err != nil {
			t.Fatalf("NewContext() = %v", err)
		}
		if ctx.Device() != device {
			t.Error("device not stored correctly")
		}
		if ctx.Queue() != queue {
			t.Error("queue not stored correctly")
		}
	})
}

func TestNewContextFromHAL(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := NewContextFromHAL(nil, queue); !errors.Is(err, ErrNilProvider) {
		t.Errorf("NewContextFromHAL(nil, queue) = %v, want ErrNilProvider", err)
	}
	if _, err := NewContextFromHAL(device, nil); !errors.Is(err, ErrNilProvider) {
		t.Errorf("NewContextFromHAL(device, nil) = %v, want ErrNilProvider", err)
	}

	ctx, err := NewContextFromHAL(device, queue)
	if err != nil {
		t.Fatalf("NewContextFromHAL() = %v", err)
	}
	if ctx.Released() {
		t.Error("fresh context reports released")
	}
}

func TestContext_Release(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	ctx, err := NewContextFromHAL(device, queue)
	if err != nil {
		t.Fatal(err)
	}

	ctx.Release()
	if !ctx.Released() {
		t.Error("Released() = false after Release")
	}
	if ctx.Device() != nil || ctx.Queue() != nil {
		t.Error("device references survive Release")
	}

	// The device belongs to the host: releasing the context must not have
	// destroyed it. Creating a buffer still works.
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "post_release_buffer",
		Size:  16,
		Usage: gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("device unusable after context release: %v", err)
	}
	device.DestroyBuffer(buf)

	// Idempotent.
	ctx.Release()
}
