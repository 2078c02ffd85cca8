// Package diff compares two states of a graph so clients can apply edits
// incrementally instead of reloading the whole module.
package diff

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ritzau/scenegraph/pkg/ir"
)

// GraphDiff represents the difference between two graph states
type GraphDiff struct {
	AddedNodes    []ir.GraphNode `json:"addedNodes"`
	RemovedNodes  []string       `json:"removedNodes"`  // Node IDs
	ModifiedNodes []ir.GraphNode `json:"modifiedNodes"` // Nodes with changed label, params or code
	AddedEdges    []ir.GraphEdge `json:"addedEdges"`
	RemovedEdges  []string       `json:"removedEdges"` // Edge IDs
}

// Empty reports whether the two states were equal
func (d *GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Hash identifies the content of g. Layers that serialize identically hash
// identically whatever their node and edge order.
func Hash(g ir.GraphLayer) string {
	text, err := ir.Serialize(g)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}

// Compute returns what changed from old to updated. Results follow the node
// and edge order of the layer they were found in.
func Compute(old, updated ir.GraphLayer) *GraphDiff {
	diff := &GraphDiff{
		AddedNodes:    make([]ir.GraphNode, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]ir.GraphNode, 0),
		AddedEdges:    make([]ir.GraphEdge, 0),
		RemovedEdges:  make([]string, 0),
	}

	oldNodes := make(map[string]ir.GraphNode, len(old.Nodes))
	for _, n := range old.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]bool, len(updated.Nodes))
	for _, n := range updated.Nodes {
		newNodes[n.ID] = true
		prev, exists := oldNodes[n.ID]
		switch {
		case !exists:
			diff.AddedNodes = append(diff.AddedNodes, n)
		case !nodesEqual(prev, n):
			diff.ModifiedNodes = append(diff.ModifiedNodes, n)
		}
	}
	for _, n := range old.Nodes {
		if !newNodes[n.ID] {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}

	oldEdges := make(map[string]bool, len(old.Edges))
	for _, e := range old.Edges {
		oldEdges[e.ID] = true
	}
	newEdges := make(map[string]bool, len(updated.Edges))
	for _, e := range updated.Edges {
		newEdges[e.ID] = true
		if !oldEdges[e.ID] {
			diff.AddedEdges = append(diff.AddedEdges, e)
		}
	}
	for _, e := range old.Edges {
		if !newEdges[e.ID] {
			diff.RemovedEdges = append(diff.RemovedEdges, e.ID)
		}
	}

	return diff
}

// nodesEqual compares the serialized form so absent and empty params match
func nodesEqual(a, b ir.GraphNode) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
