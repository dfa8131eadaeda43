package vk

import (
	"reflect"
	"unsafe"
)

// safeString returns a NUL-terminated copy of s, the form the Vulkan
// loader expects for PApplicationName/PEngineName style fields.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

// safeStrings NUL-terminates every entry in names.
func safeStrings(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = safeString(n)
	}
	return out
}

// unsafePointer extracts the raw pointer from a typed struct pointer for
// use in a Vulkan PNext chain. v must be a non-nil pointer.
func unsafePointer(v any) unsafe.Pointer {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil
	}
	return unsafe.Pointer(rv.Pointer())
}

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words the
// loader's ShaderModuleCreateInfo.PCode expects. The caller guarantees
// len(b) is a multiple of 4.
func sliceUint32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}

// bytesFromPointer views a mapped memory range of n bytes starting at
// ptr as a Go byte slice without copying.
func bytesFromPointer(ptr unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(ptr), n)
}
