//go:build cuda

// Package native wraps the minimal slice of the CUDA runtime that herring
// needs: device enumeration and selection, cache configuration, and
// host/device memory transfer. Declarations are forward-declared so no
// CUDA headers are required at compile time; the linker still needs
// libcudart when building with the cuda tag.
package native

/*
#cgo LDFLAGS: -lcudart -lherringfil

typedef int cudaError_t;

extern const char* cudaGetErrorString(cudaError_t err);
extern cudaError_t cudaGetDeviceCount(int* count);
extern cudaError_t cudaGetDevice(int* device);
extern cudaError_t cudaSetDevice(int device);
extern cudaError_t cudaDeviceSetCacheConfig(int cacheConfig);
extern cudaError_t cudaDeviceSynchronize(void);
extern cudaError_t cudaMalloc(void** ptr, unsigned long long size);
extern cudaError_t cudaFree(void* ptr);
extern cudaError_t cudaMemcpy(void* dst, const void* src, unsigned long long size, int kind);

#define HERRING_CUDA_MEMCPY_HOST_TO_DEVICE 1
#define HERRING_CUDA_MEMCPY_DEVICE_TO_HOST 2
#define HERRING_CUDA_CACHE_PREFER_L1 2

static const char* herringCudaErrorString(cudaError_t err) {
	return cudaGetErrorString(err);
}

static int herringCudaDeviceCount(int* out) {
	return (int)cudaGetDeviceCount(out);
}

static int herringCudaGetDevice(int* out) {
	return (int)cudaGetDevice(out);
}

static int herringCudaSetDevice(int device) {
	return (int)cudaSetDevice(device);
}

static int herringCudaPreferL1(void) {
	return (int)cudaDeviceSetCacheConfig(HERRING_CUDA_CACHE_PREFER_L1);
}

static int herringCudaSynchronize(void) {
	return (int)cudaDeviceSynchronize();
}

static int herringCudaMalloc(void** ptr, unsigned long long size) {
	return (int)cudaMalloc(ptr, size);
}

static int herringCudaFree(void* ptr) {
	return (int)cudaFree(ptr);
}

static int herringCudaCopyToDevice(void* dst, const void* src, unsigned long long size) {
	return (int)cudaMemcpy(dst, src, size, HERRING_CUDA_MEMCPY_HOST_TO_DEVICE);
}

static int herringCudaCopyToHost(void* dst, const void* src, unsigned long long size) {
	return (int)cudaMemcpy(dst, src, size, HERRING_CUDA_MEMCPY_DEVICE_TO_HOST);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

func cudaErr(code C.int, op string) error {
	if code == 0 {
		return nil
	}
	return fmt.Errorf("%s: cuda error %d: %s", op, int(code), C.GoString(C.herringCudaErrorString(C.cudaError_t(code))))
}

// DeviceCount returns the number of visible CUDA devices.
func DeviceCount() (int, error) {
	var n C.int
	if err := cudaErr(C.herringCudaDeviceCount(&n), "cudaGetDeviceCount"); err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetDevice returns the ordinal of the current CUDA device.
func GetDevice() (int, error) {
	var d C.int
	if err := cudaErr(C.herringCudaGetDevice(&d), "cudaGetDevice"); err != nil {
		return 0, err
	}
	return int(d), nil
}

// SetDevice makes ordinal the current CUDA device.
func SetDevice(ordinal int) error {
	return cudaErr(C.herringCudaSetDevice(C.int(ordinal)), "cudaSetDevice")
}

// PreferCacheL1 biases the current device's cache split toward L1.
func PreferCacheL1() error {
	return cudaErr(C.herringCudaPreferL1(), "cudaDeviceSetCacheConfig")
}

// Synchronize blocks until the current device finishes all pending work.
func Synchronize() error {
	return cudaErr(C.herringCudaSynchronize(), "cudaDeviceSynchronize")
}

// Buffer is a device-resident allocation.
type Buffer struct {
	ptr  unsafe.Pointer
	size uint64
}

// Alloc allocates size bytes on the current device.
func Alloc(size uint64) (Buffer, error) {
	if size == 0 {
		return Buffer{}, nil
	}
	var p unsafe.Pointer
	if err := cudaErr(C.herringCudaMalloc(&p, C.ulonglong(size)), "cudaMalloc"); err != nil {
		return Buffer{}, err
	}
	return Buffer{ptr: p, size: size}, nil
}

// Upload copies host bytes into the buffer.
func (b Buffer) Upload(src []byte) error {
	if uint64(len(src)) > b.size {
		return fmt.Errorf("upload of %d bytes exceeds buffer size %d", len(src), b.size)
	}
	if len(src) == 0 {
		return nil
	}
	return cudaErr(C.herringCudaCopyToDevice(b.ptr, unsafe.Pointer(&src[0]), C.ulonglong(len(src))), "cudaMemcpy")
}

// Download copies device bytes back to host memory.
func (b Buffer) Download(dst []byte) error {
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("download of %d bytes exceeds buffer size %d", len(dst), b.size)
	}
	if len(dst) == 0 {
		return nil
	}
	return cudaErr(C.herringCudaCopyToHost(unsafe.Pointer(&dst[0]), b.ptr, C.ulonglong(len(dst))), "cudaMemcpy")
}

// Free releases the allocation. Safe on the zero value.
func (b Buffer) Free() error {
	if b.ptr == nil {
		return nil
	}
	return cudaErr(C.herringCudaFree(b.ptr), "cudaFree")
}

// Ptr exposes the raw device pointer for kernel launches.
func (b Buffer) Ptr() unsafe.Pointer {
	return b.ptr
}
