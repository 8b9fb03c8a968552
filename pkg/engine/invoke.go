// pkg/engine/invoke.go
package engine

import (
	"unsafe"

	"github.com/Mytherin/RembranDB/pkg/jit"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

// invokeKernel packs raw column buffer pointers in used-column order and
// runs the compiled kernel over n rows. This is the engine's only unsafe
// surface: the kernel ABI takes the buffers as untyped pointers.
func invokeKernel(kernel jit.Kernel, n int64, cols []*storage.Column) []float64 {
	result := make([]float64, n)
	inputs := make([]unsafe.Pointer, len(cols))
	for i, col := range cols {
		if len(col.Data) > 0 {
			inputs[i] = unsafe.Pointer(&col.Data[0])
		}
	}
	kernel(result, n, inputs)
	return result
}
