package geometry

import (
	"sort"

	"inkboard/src/pkg/model"
)

// Split partitions the points of line into contiguous runs separated by the
// hit indices. When removeMatched is false a hit point closes one run and
// opens the next; when true the hit point is dropped. Runs of at least two
// points become new lines carrying the style of line.
//
// A hit on the first or last index is reported with a GeometryWarning; the
// returned lines are still valid. Indices outside the line are rejected.
func Split(line *model.Line, hits []int, removeMatched bool) ([]*model.Line, error) {
	n := len(line.Points)
	if len(hits) == 0 {
		return nil, model.NewValidationError("split", "no split points")
	}
	set := make(map[int]bool, len(hits))
	for _, h := range hits {
		if h < 0 || h >= n {
			return nil, model.NewValidationError("split", "index %d outside line of %d points", h, n)
		}
		set[h] = true
	}
	idx := make([]int, 0, len(set))
	for h := range set {
		idx = append(idx, h)
	}
	sort.Ints(idx)

	var warn error
	if set[0] || set[n-1] {
		warn = model.NewGeometryWarning("split", "split at the line end leaves it unchanged")
	}

	var runs [][]model.Vec3
	start := 0
	for _, h := range idx {
		end := h
		if removeMatched {
			end = h - 1
		}
		if end >= start {
			runs = append(runs, line.Points[start:end+1])
		}
		start = h
		if removeMatched {
			start = h + 1
		}
	}
	if start < n {
		runs = append(runs, line.Points[start:])
	}

	var out []*model.Line
	for _, run := range runs {
		if len(run) < 2 {
			continue
		}
		nl := &model.Line{Points: append([]model.Vec3(nil), run...)}
		nl.StyleFrom(line)
		nl.Loop = false
		Bake(nl)
		out = append(out, nl)
	}
	return out, warn
}
