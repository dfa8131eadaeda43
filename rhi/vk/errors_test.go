package vk

import (
	"testing"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func TestCheckResultSuccess(t *testing.T) {
	if err := checkResult("op", vulkan.Success); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestCheckResultClassification(t *testing.T) {
	cases := map[vulkan.Result]rhi.ErrorKind{
		vulkan.ErrorOutOfHostMemory:      rhi.OutOfMemory,
		vulkan.ErrorOutOfDeviceMemory:    rhi.OutOfMemory,
		vulkan.ErrorDeviceLost:           rhi.DeviceLost,
		vulkan.ErrorExtensionNotPresent:  rhi.Unsupported,
		vulkan.ErrorFeatureNotPresent:    rhi.Unsupported,
		vulkan.ErrorIncompatibleDriver:   rhi.Unsupported,
	}
	for result, want := range cases {
		err := checkResult("op", result)
		rerr, ok := err.(*rhi.Error)
		if !ok {
			t.Fatalf("checkResult(%v): expected *rhi.Error, got %T", result, err)
		}
		if rerr.Kind != want {
			t.Errorf("checkResult(%v).Kind = %v, want %v", result, rerr.Kind, want)
		}
	}
}

func TestCheckResultDefaultsToDriverError(t *testing.T) {
	err := checkResult("op", vulkan.ErrorUnknown)
	rerr, ok := err.(*rhi.Error)
	if !ok {
		t.Fatalf("expected *rhi.Error, got %T", err)
	}
	if rerr.Kind != rhi.DriverError {
		t.Errorf("Kind = %v, want DriverError", rerr.Kind)
	}
}

func TestIsError(t *testing.T) {
	if isError(vulkan.Success) {
		t.Error("isError(Success) = true, want false")
	}
	if !isError(vulkan.ErrorDeviceLost) {
		t.Error("isError(ErrorDeviceLost) = false, want true")
	}
}
