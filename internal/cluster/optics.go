package cluster

import (
	"math"
	"sort"
)

// opticsXi computes OPTICS cluster labels over a precomputed distance
// matrix using the xi steep-area extraction. Returns one label per
// point: a cluster ID >= 0, or -1 for noise.
//
// The neighborhood radius is unbounded, so every point is reachable
// and the reachability plot has a single infinite value at its head.
// minSamples must already be capped at the point count.
func opticsXi(dist [][]float64, minSamples int, xi float64, minClusterSize int) []int {
	n := len(dist)
	ordering, reach, pred := opticsOrder(dist, minSamples)

	// Reachability plot in ordering space, with a trailing sentinel so
	// a cluster may close at the final point.
	plot := make([]float64, n+1)
	for i, p := range ordering {
		plot[i] = reach[p]
	}
	plot[n] = math.Inf(1)

	spans := xiClusters(plot, ordering, pred, minSamples, xi, minClusterSize)

	// Leaf spans come first; an enclosing span is labeled only when
	// none of its points are already claimed.
	plotLabels := make([]int, n)
	for i := range plotLabels {
		plotLabels[i] = -1
	}
	next := 0
	for _, sp := range spans {
		claimed := false
		for i := sp[0]; i <= sp[1]; i++ {
			if plotLabels[i] != -1 {
				claimed = true
				break
			}
		}
		if claimed {
			continue
		}
		for i := sp[0]; i <= sp[1]; i++ {
			plotLabels[i] = next
		}
		next++
	}

	labels := make([]int, n)
	for i, p := range ordering {
		labels[p] = plotLabels[i]
	}
	return labels
}

// opticsOrder produces the OPTICS processing order, the final
// reachability distance of each point, and the predecessor through
// which that reachability was set (-1 for run heads). The first point
// of each run keeps an infinite reachability.
func opticsOrder(dist [][]float64, minSamples int) (ordering []int, reach []float64, pred []int) {
	n := len(dist)
	core := coreDistances(dist, minSamples)

	reach = make([]float64, n)
	pred = make([]int, n)
	for i := range reach {
		reach[i] = math.Inf(1)
		pred[i] = -1
	}
	processed := make([]bool, n)
	ordering = make([]int, 0, n)

	for len(ordering) < n {
		// Next point: smallest reachability among unprocessed points,
		// lowest index on ties.
		p := -1
		for i := 0; i < n; i++ {
			if processed[i] {
				continue
			}
			if p == -1 || reach[i] < reach[p] {
				p = i
			}
		}
		processed[p] = true
		ordering = append(ordering, p)

		for o := 0; o < n; o++ {
			if processed[o] {
				continue
			}
			if nr := math.Max(core[p], dist[p][o]); nr < reach[o] {
				reach[o] = nr
				pred[o] = p
			}
		}
	}
	return ordering, reach, pred
}

// coreDistances returns, per point, the distance to its minSamples-th
// nearest neighbor (self included).
func coreDistances(dist [][]float64, minSamples int) []float64 {
	n := len(dist)
	core := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		copy(row, dist[i])
		sort.Float64s(row)
		core[i] = row[minSamples-1]
	}
	return core
}

// steepArea is a maximal steep-down region of the reachability plot,
// tracked together with the maximum value seen since its end.
type steepArea struct {
	start, end int
	mib        float64
}

// xiClusters runs the xi steep-area extraction over the reachability
// plot (which carries a trailing sentinel) and returns cluster spans
// as inclusive [start, end] index pairs, innermost spans first within
// each closing region.
func xiClusters(plot []float64, ordering, pred []int, minSamples int, xi float64, minClusterSize int) [][2]int {
	n := len(plot) - 1
	comp := 1 - xi

	// ratio[i] compares plot[i] to plot[i+1]. NaN ratios (flat zero
	// regions) are neither steep nor directional.
	steepDown := make([]bool, n)
	steepUp := make([]bool, n)
	down := make([]bool, n)
	up := make([]bool, n)
	for i := 0; i < n; i++ {
		r := plot[i] / plot[i+1]
		steepDown[i] = r >= 1/comp
		steepUp[i] = r <= comp
		down[i] = r > 1
		up[i] = r < 1
	}

	var (
		areas    []steepArea
		clusters [][2]int
		index    int
		mib      float64
	)

	for steepIndex := 0; steepIndex < n; steepIndex++ {
		if !steepDown[steepIndex] && !steepUp[steepIndex] {
			continue
		}
		if steepIndex < index {
			continue
		}
		for i := index; i <= steepIndex; i++ {
			mib = math.Max(mib, plot[i])
		}

		if steepDown[steepIndex] {
			areas = filterAreas(areas, mib, comp, plot)
			end := extendRegion(steepDown, up, steepIndex, minSamples)
			areas = append(areas, steepArea{start: steepIndex, end: end})
			index = end + 1
			mib = plot[index]
			continue
		}

		areas = filterAreas(areas, mib, comp, plot)
		uStart := steepIndex
		uEnd := extendRegion(steepUp, down, uStart, minSamples)
		index = uEnd + 1
		mib = plot[index]

		var found [][2]int
		for _, area := range areas {
			cStart, cEnd := area.start, uEnd
			if plot[cEnd+1]*comp < area.mib {
				continue
			}

			// Align the shallower side with the deeper one.
			dMax := plot[area.start]
			if dMax*comp >= plot[cEnd+1] {
				for cStart < area.end && plot[cStart+1] > plot[cEnd+1] {
					cStart++
				}
			} else if plot[cEnd+1]*comp >= dMax {
				for cEnd > uStart && plot[cEnd-1] > dMax {
					cEnd--
				}
			}

			cStart, cEnd = correctPredecessor(plot, ordering, pred, cStart, cEnd)
			if cStart < 0 {
				continue
			}
			if cEnd-cStart+1 < minClusterSize {
				continue
			}
			if cStart > area.end || cEnd < uStart {
				continue
			}
			found = append(found, [2]int{cStart, cEnd})
		}
		// Innermost candidates close against the most recent steep-down
		// areas; emit those first so nested clusters win labeling.
		for i := len(found) - 1; i >= 0; i-- {
			clusters = append(clusters, found[i])
		}
	}
	return clusters
}

// extendRegion grows a steep region from start, tolerating at most
// minSamples consecutive flat points and stopping when the plot turns
// the other way.
func extendRegion(steep, opposite []bool, start, minSamples int) int {
	end := start
	flat := 0
	for i := start; i < len(steep); i++ {
		switch {
		case steep[i]:
			flat = 0
			end = i
		case opposite[i]:
			return end
		default:
			flat++
			if flat > minSamples {
				return end
			}
		}
	}
	return end
}

// correctPredecessor shrinks a candidate span from the right until its
// last point was actually reached from inside the span. This trims
// boundary points that only border the cluster in the ordering.
// Returns (-1, -1) when nothing survives.
func correctPredecessor(plot []float64, ordering, pred []int, s, e int) (int, int) {
	for s < e {
		if plot[s] > plot[e] {
			return s, e
		}
		pe := pred[ordering[e]]
		inside := false
		for i := s; i < e; i++ {
			if ordering[i] == pe {
				inside = true
				break
			}
		}
		if inside {
			return s, e
		}
		e--
	}
	return -1, -1
}

// filterAreas drops steep-down areas invalidated by the running
// maximum and folds that maximum into the survivors.
func filterAreas(areas []steepArea, mib, comp float64, plot []float64) []steepArea {
	if math.IsInf(mib, 1) {
		return nil
	}
	kept := areas[:0]
	for i := range areas {
		if mib <= plot[areas[i].start]*comp {
			areas[i].mib = math.Max(areas[i].mib, mib)
			kept = append(kept, areas[i])
		}
	}
	return kept
}

// cosineDistanceMatrix builds the symmetric pairwise cosine distance
// matrix. Zero-norm vectors are maximally distant from everything.
func cosineDistanceMatrix(embeddings [][]float64) [][]float64 {
	n := len(embeddings)
	norms := make([]float64, n)
	for i, e := range embeddings {
		var sum float64
		for _, v := range e {
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1.0
			if norms[i] > 0 && norms[j] > 0 {
				var dot float64
				for k := range embeddings[i] {
					dot += embeddings[i][k] * embeddings[j][k]
				}
				d = 1 - dot/(norms[i]*norms[j])
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}
