package cluster

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/matcher"
)

// clusterGraph computes the full symmetric pairwise match matrix, builds
// the undirected match graph and returns its connected components. Two
// structures end up in the same family whenever any path of pairwise
// matches connects them, even if they do not match each other directly.
func clusterGraph(ctx context.Context, entries []Entry, m matcher.Matcher) ([][]string, error) {
	n := len(entries)
	adjacency := make([][]int, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fit, err := m.Fit(entries[i].Geometry, entries[j].Geometry)
			if err != nil {
				return nil, fmt.Errorf("matching %s against %s: %w", entries[i].Source, entries[j].Source, err)
			}
			if fit {
				adjacency[i] = append(adjacency[i], j)
				adjacency[j] = append(adjacency[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var partition [][]string

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		var component []string
		stack := []int{start}
		visited[start] = true

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, entries[node].Source)

			for _, next := range adjacency[node] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		partition = append(partition, component)
	}
	return partition, nil
}
