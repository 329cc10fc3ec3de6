// Package blockrange resolves a transformer-block selector, either a named
// preset or a free-text range string, into a sorted set of block indices.
package blockrange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Custom is the preset name that defers to the free-text range string.
const Custom = "custom"

// defaultRange is used when an unknown preset name comes in; the selection
// shrinks instead of failing.
const defaultRange = "0-10"

// presetRanges maps each named preset to its inclusive block range.
var presetRanges = map[string]string{
	"early_0-5_structure":      "0-5",
	"early_0-10_body":          "0-10",
	"early_mid_0-20_full_body": "0-20",
	"mid_6-24_lipsync":         "6-24",
	"mid_10-25_gestures":       "10-25",
	"late_25-39_texture":       "25-39",
	"most_0-30_aggressive":     "0-30",
	"all_0-39_maximum":         "0-39",
}

// presetOrder is the order presets are offered to the host UI.
var presetOrder = []string{
	Custom,
	"early_0-5_structure",
	"early_0-10_body",
	"early_mid_0-20_full_body",
	"mid_6-24_lipsync",
	"mid_10-25_gestures",
	"late_25-39_texture",
	"most_0-30_aggressive",
	"all_0-39_maximum",
}

// Presets returns the selectable preset names, Custom first.
func Presets() []string {
	out := make([]string, len(presetOrder))
	copy(out, presetOrder)
	return out
}

// Known reports whether preset is Custom or a named preset.
func Known(preset string) bool {
	if preset == Custom {
		return true
	}
	_, ok := presetRanges[preset]
	return ok
}

// Resolve turns a preset selector into block indices. Custom parses the
// custom string; an unknown preset falls back to the default range.
func Resolve(preset, custom string) ([]int, error) {
	if preset == Custom {
		return Parse(custom)
	}
	spec, ok := presetRanges[preset]
	if !ok {
		spec = defaultRange
	}
	return Parse(spec)
}

// Parse expands a comma-separated range string such as "6-24" or
// "0-5,12,25-39" into deduplicated ascending block indices. Segments are
// single integers or inclusive start-end pairs; a reversed pair contributes
// nothing. Non-numeric text is an error for the caller to surface.
func Parse(spec string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, segment := range strings.Split(spec, ",") {
		segment = strings.TrimSpace(segment)
		if start, end, ok := strings.Cut(segment, "-"); ok {
			lo, err := strconv.Atoi(strings.TrimSpace(start))
			if err != nil {
				return nil, fmt.Errorf("invalid block range segment %q: %w", segment, err)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(end))
			if err != nil {
				return nil, fmt.Errorf("invalid block range segment %q: %w", segment, err)
			}
			for i := lo; i <= hi; i++ {
				seen[i] = struct{}{}
			}
			continue
		}
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, fmt.Errorf("invalid block index %q: %w", segment, err)
		}
		seen[idx] = struct{}{}
	}

	blocks := make([]int, 0, len(seen))
	for idx := range seen {
		blocks = append(blocks, idx)
	}
	sort.Ints(blocks)
	return blocks, nil
}
