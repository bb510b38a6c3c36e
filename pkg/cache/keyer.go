package cache

import (
	"strconv"
	"strings"
)

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey returns the key of the positions computed for a diagram
	// structure.
	LayoutKey(diagramHash string, opts LayoutKeyOpts) string

	// ArtifactKey returns the key of an exported artifact.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs that change a layout result besides the
// diagram itself.
type LayoutKeyOpts struct {
	Algorithm string    `json:"algorithm"`
	Params    []float64 `json:"params,omitempty"` // numeric layout configuration
}

// ArtifactKeyOpts are the export options that change an artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Scale       float64 `json:"scale,omitempty"`
	Padding     float64 `json:"padding"`
	Background  bool    `json:"background"`
	EdgeLabels  bool    `json:"edge_labels"`
	Grid        bool    `json:"grid"`
	Interaction bool    `json:"interaction"`
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<algorithm>:<hash>".
func (DefaultKeyer) LayoutKey(diagramHash string, opts LayoutKeyOpts) string {
	return hashKey("layout:"+strings.ToLower(opts.Algorithm), diagramHash, opts)
}

// ArtifactKey returns "artifact:<format>:<hash>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+strings.ToLower(opts.Format), layoutHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. The
// CLI scopes keys by connection so one cache directory can serve every
// database.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(diagramHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(diagramHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}

// ConnectionScope returns the conventional prefix for a connection id.
func ConnectionScope(connID string) string {
	return "conn:" + strconv.Quote(connID) + ":"
}
