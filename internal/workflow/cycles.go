package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/gammazero/toposort"
)

var (
	// ErrSelfDependency is returned when a ticket lists itself in dependsOn.
	ErrSelfDependency = errors.New("ticket cannot depend on itself")
	// ErrDependencyCycle is returned when proposed edges close a loop.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// DependsOnLister reads dependsOn lists for a batch of tickets.
type DependsOnLister interface {
	ListDependsOn(ctx context.Context, ids []string) (map[string][]string, error)
}

// CollectGraph walks the dependency graph reachable from dependsOn and
// returns the adjacency it found. ticketID is excluded so its stored edges do
// not mask the proposed ones.
func CollectGraph(ctx context.Context, lister DependsOnLister, ticketID string, dependsOn []string) (map[string][]string, error) {
	graph := map[string][]string{}
	visited := map[string]struct{}{ticketID: {}}
	frontier := make([]string, 0, len(dependsOn))
	for _, id := range dependsOn {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for len(frontier) > 0 {
		edges, err := lister.ListDependsOn(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("list dependencies: %w", err)
		}
		next := []string{}
		for _, id := range frontier {
			deps := edges[id]
			graph[id] = deps
			for _, dep := range deps {
				if _, ok := visited[dep]; ok {
					continue
				}
				visited[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return graph, nil
}

// ValidateEdges rejects a proposed dependsOn list for ticketID when it names
// the ticket itself or when, combined with graph, it forms a cycle.
func ValidateEdges(ticketID string, dependsOn []string, graph map[string][]string) error {
	for _, id := range dependsOn {
		if id == ticketID {
			return ErrSelfDependency
		}
	}
	if len(dependsOn) == 0 {
		return nil
	}

	var edges []toposort.Edge
	for _, depID := range dependsOn {
		// Edge (depID, ticketID) means depID must come before ticketID.
		edges = append(edges, toposort.Edge{depID, ticketID})
	}
	for node, deps := range graph {
		if node == ticketID {
			continue
		}
		if len(deps) == 0 {
			edges = append(edges, toposort.Edge{nil, node})
			continue
		}
		for _, depID := range deps {
			edges = append(edges, toposort.Edge{depID, node})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyCycle, err)
	}
	return nil
}
