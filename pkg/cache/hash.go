package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/schemagraph/pkg/diagram"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// structure is the layout-relevant shape of a diagram: node ids and sizes,
// and edge endpoints, in order. Positions, colors and selection are left
// out so a diagram hashes the same before and after layout.
type structure struct {
	Nodes []structNode `json:"nodes"`
	Edges [][2]string  `json:"edges"`
}

type structNode struct {
	ID string  `json:"id"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// DiagramHash hashes the layout-relevant structure of d.
func DiagramHash(d *diagram.Data) string {
	s := structure{
		Nodes: make([]structNode, len(d.Nodes)),
		Edges: make([][2]string, len(d.Edges)),
	}
	for i, n := range d.Nodes {
		s.Nodes[i] = structNode{ID: n.ID, W: n.Size.Width, H: n.Size.Height}
	}
	for i, e := range d.Edges {
		s.Edges[i] = [2]string{e.SourceNode, e.TargetNode}
	}
	data, _ := json.Marshal(s)
	return Hash(data)
}
