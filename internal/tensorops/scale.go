// Package tensorops holds the small amount of tensor math the hooks need.
package tensorops

import (
	"fmt"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// Scale returns a copy of t with every element multiplied by factor. The
// input tensor is left untouched: the host may still hold its buffer. Only
// floating dtypes are supported; anything else is an error the caller turns
// into a pass-through.
func Scale(t *tensors.Tensor, factor float64) (*tensors.Tensor, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot scale a nil tensor")
	}

	out := t.LocalClone()
	switch t.DType() {
	case dtypes.Float16:
		f := float32(factor)
		tensors.MutableFlatData(out, func(flat []float16.Float16) {
			for i, v := range flat {
				flat[i] = float16.Fromfloat32(v.Float32() * f)
			}
		})
	case dtypes.BFloat16:
		f := float32(factor)
		tensors.MutableFlatData(out, func(flat []bfloat16.BFloat16) {
			for i, v := range flat {
				flat[i] = bfloat16.FromFloat32(v.Float32() * f)
			}
		})
	case dtypes.Float32:
		f := float32(factor)
		tensors.MutableFlatData(out, func(flat []float32) {
			for i := range flat {
				flat[i] *= f
			}
		})
	case dtypes.Float64:
		tensors.MutableFlatData(out, func(flat []float64) {
			for i := range flat {
				flat[i] *= factor
			}
		})
	default:
		return nil, fmt.Errorf("cannot scale tensor of dtype %s", t.DType())
	}
	return out, nil
}
