package numeric

import (
	"gonum.org/v1/gonum/mat"
)

// AverageLinkage performs agglomerative hierarchical clustering over a
// precomputed distance matrix, merging the closest pair of clusters while
// their average-linkage distance stays at or below threshold. There is no
// fixed cluster count; the result assigns a label in [0, k) to every input
// row.
//
// The implementation is the naive O(n^3) algorithm, which is fine for the
// edge-example set sizes this serves (tens to low hundreds).
func AverageLinkage(dist *mat.Dense, threshold float64) []int {
	n, _ := dist.Dims()
	if n == 0 {
		return nil
	}

	// Each cluster starts as a singleton holding its row indices.
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	// Average-linkage distance between two clusters.
	linkage := func(a, b []int) float64 {
		sum := 0.0
		for _, i := range a {
			for _, j := range b {
				sum += dist.At(i, j)
			}
		}
		return sum / float64(len(a)*len(b))
	}

	for {
		bestI, bestJ := -1, -1
		bestDist := threshold
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d := linkage(clusters[i], clusters[j]); d <= bestDist {
					bestDist = d
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		active[bestJ] = false
	}

	labels := make([]int, n)
	next := 0
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		for _, member := range clusters[i] {
			labels[member] = next
		}
		next++
	}
	return labels
}

// ClusterMembers groups row indices by their cluster label.
func ClusterMembers(labels []int) map[int][]int {
	members := make(map[int][]int)
	for i, label := range labels {
		members[label] = append(members[label], i)
	}
	return members
}
