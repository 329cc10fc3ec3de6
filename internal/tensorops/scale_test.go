package tensorops

import (
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestScale_Float32(t *testing.T) {
	in := tensors.FromFlatDataAndDimensions([]float32{1, -2, 0.5, 0}, 2, 2)
	out, err := Scale(in, 2.0)
	require.NoError(t, err)

	want := tensors.FromFlatDataAndDimensions([]float32{2, -4, 1, 0}, 2, 2)
	assert.True(t, out.Equal(want), "got %s", out)
}

func TestScale_Float64(t *testing.T) {
	in := tensors.FromFlatDataAndDimensions([]float64{10, 20, 30}, 3)
	out, err := Scale(in, 0.05)
	require.NoError(t, err)

	want := tensors.FromFlatDataAndDimensions([]float64{0.5, 1, 1.5}, 3)
	assert.True(t, out.InDelta(want, 1e-12), "got %s", out)
}

func TestScale_Float16(t *testing.T) {
	in := tensors.FromFlatDataAndDimensions([]float16.Float16{
		float16.Fromfloat32(1),
		float16.Fromfloat32(-4),
	}, 2)
	out, err := Scale(in, 0.5)
	require.NoError(t, err)

	tensors.ConstFlatData(out, func(flat []float16.Float16) {
		assert.InDelta(t, 0.5, flat[0].Float32(), 1e-3)
		assert.InDelta(t, -2.0, flat[1].Float32(), 1e-3)
	})
}

func TestScale_DoesNotMutateInput(t *testing.T) {
	in := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	_, err := Scale(in, 3.0)
	require.NoError(t, err)

	untouched := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	assert.True(t, in.Equal(untouched), "input was mutated: %s", in)
}

func TestScale_UnsupportedDType(t *testing.T) {
	in := tensors.FromFlatDataAndDimensions([]int32{1, 2}, 2)
	_, err := Scale(in, 2.0)
	assert.Error(t, err)
}

func TestScale_NilTensor(t *testing.T) {
	_, err := Scale(nil, 2.0)
	assert.Error(t, err)
}
