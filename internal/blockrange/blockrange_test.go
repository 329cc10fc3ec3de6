package blockrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeOf(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

func TestResolve_Presets(t *testing.T) {
	cases := map[string][]int{
		"early_0-5_structure":      rangeOf(0, 5),
		"early_0-10_body":          rangeOf(0, 10),
		"early_mid_0-20_full_body": rangeOf(0, 20),
		"mid_6-24_lipsync":         rangeOf(6, 24),
		"mid_10-25_gestures":       rangeOf(10, 25),
		"late_25-39_texture":       rangeOf(25, 39),
		"most_0-30_aggressive":     rangeOf(0, 30),
		"all_0-39_maximum":         rangeOf(0, 39),
	}
	for preset, want := range cases {
		t.Run(preset, func(t *testing.T) {
			got, err := Resolve(preset, "")
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.True(t, Known(preset))
		})
	}
}

func TestResolve_UnknownPresetFallsBack(t *testing.T) {
	got, err := Resolve("totally_made_up", "")
	require.NoError(t, err)
	assert.Equal(t, rangeOf(0, 10), got)
	assert.False(t, Known("totally_made_up"))
}

func TestResolve_CustomUsesRangeString(t *testing.T) {
	got, err := Resolve(Custom, "3-5,9")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 9}, got)
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		spec string
		want []int
	}{
		{"single", "7", []int{7}},
		{"pair", "6-9", []int{6, 7, 8, 9}},
		{"mixed", "0-2,12,25-27", []int{0, 1, 2, 12, 25, 26, 27}},
		{"duplicates collapse", "5-5,5", []int{5}},
		{"order independent", "12,0-2,1", []int{0, 1, 2, 12}},
		{"overlapping pairs", "3-6,5-8", []int{3, 4, 5, 6, 7, 8}},
		{"whitespace tolerated", " 4 , 6 - 7 ", []int{4, 6, 7}},
		{"reversed pair is empty", "9-5", []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, spec := range []string{"abc", "1-x", "", "1,,3", "3-"} {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec)
			assert.Error(t, err)
		})
	}
}

func TestPresets_ListsCustomFirst(t *testing.T) {
	presets := Presets()
	require.NotEmpty(t, presets)
	assert.Equal(t, Custom, presets[0])
	for _, p := range presets {
		assert.True(t, Known(p), p)
	}
}
