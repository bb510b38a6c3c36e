package layout

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
)

// Algorithm names a layout algorithm.
type Algorithm string

const (
	Hierarchical Algorithm = "hierarchical"
	Force        Algorithm = "force"
	Circular     Algorithm = "circular"
	Grid         Algorithm = "grid"
)

// DefaultAlgorithm is used when no algorithm is requested.
const DefaultAlgorithm = Hierarchical

// Algorithms returns every supported algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{Hierarchical, Force, Circular, Grid}
}

// ParseAlgorithm validates an algorithm name. The empty string selects
// [DefaultAlgorithm].
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return DefaultAlgorithm, nil
	}
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Algorithms(), a) {
		return a, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLayout, "unknown layout algorithm %q", s)
}

// Config holds the fixed parameters of every algorithm.
type Config struct {
	// Hierarchical
	HorizontalSpacing float64 // distance between node centers within a layer
	LayerHeight       float64 // vertical distance between layers

	// Force
	Iterations  int     // number of simulation steps
	IdealLength float64 // ideal edge length k
	Temperature float64 // initial maximum displacement T0

	// Circular
	RadiusPerNode float64
	MinRadius     float64

	// Grid
	GridColumnGap float64
	GridRowGap    float64
}

// DefaultConfig returns the standard layout parameters.
func DefaultConfig() Config {
	return Config{
		HorizontalSpacing: 300,
		LayerHeight:       300,
		Iterations:        120,
		IdealLength:       250,
		Temperature:       200,
		RadiusPerNode:     60,
		MinRadius:         250,
		GridColumnGap:     80,
		GridRowGap:        80,
	}
}

// Option configures [Apply].
type Option func(*options)

type options struct {
	config Config
	logger *log.Logger
}

// WithConfig replaces the default parameters.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the logger used to warn about cycle tie-breaks.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Apply positions nodes with the given algorithm. Only Position is written.
// An empty node slice is a no-op for every known algorithm; an unknown
// algorithm returns an INVALID_LAYOUT error and leaves nodes untouched.
func Apply(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge, alg Algorithm, opts ...Option) error {
	o := options{config: DefaultConfig(), logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}

	var run func([]*diagram.TableNode, []*diagram.RelationshipEdge, Config, *log.Logger)
	switch alg {
	case Hierarchical:
		run = hierarchical
	case Force:
		run = force
	case Circular:
		run = func(n []*diagram.TableNode, _ []*diagram.RelationshipEdge, c Config, _ *log.Logger) { circular(n, c) }
	case Grid:
		run = func(n []*diagram.TableNode, _ []*diagram.RelationshipEdge, c Config, _ *log.Logger) { grid(n, c) }
	default:
		return errors.New(errors.ErrCodeInvalidLayout, "unknown layout algorithm %q", alg)
	}

	if len(nodes) == 0 {
		return nil
	}
	run(nodes, edges, o.config, o.logger)
	return nil
}

// ApplyData runs [Apply] over a diagram's nodes and edges.
func ApplyData(d *diagram.Data, alg Algorithm, opts ...Option) error {
	return Apply(d.Nodes, d.Edges, alg, opts...)
}

// links returns the edges as (source, target) index pairs, skipping
// self-loops and edges with an endpoint outside nodes.
func links(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge) (index map[string]int, pairs [][2]int) {
	index = make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}
	for _, e := range edges {
		s, okS := index[e.SourceNode]
		t, okT := index[e.TargetNode]
		if !okS || !okT || s == t {
			continue
		}
		pairs = append(pairs, [2]int{s, t})
	}
	return index, pairs
}
