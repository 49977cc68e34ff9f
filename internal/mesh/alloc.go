package mesh

// Allocator supplies and frees the backing storage of owned output buffers.
// The C ABI plugs in a malloc-backed allocator so foreign callers can hold
// the memory; Go callers use HeapAllocator.
type Allocator interface {
	AllocFloats(n int) []float32
	AllocIndices(n int) []int32
	FreeFloats(buf []float32)
	FreeIndices(buf []int32)
}

// HeapAllocator allocates on the Go heap. Freeing only drops the reference;
// the garbage collector reclaims the memory.
type HeapAllocator struct{}

func (HeapAllocator) AllocFloats(n int) []float32 {
	if n == 0 {
		return nil
	}
	return make([]float32, n)
}

func (HeapAllocator) AllocIndices(n int) []int32 {
	if n == 0 {
		return nil
	}
	return make([]int32, n)
}

func (HeapAllocator) FreeFloats([]float32) {}

func (HeapAllocator) FreeIndices([]int32) {}

// DefaultAllocator is used when a component is not given an Allocator.
var DefaultAllocator Allocator = HeapAllocator{}
