package diagram

import (
	"fmt"
	"time"

	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// ColumnDisplay selects which columns a node shows.
type ColumnDisplay string

const (
	ColumnsAll  ColumnDisplay = "all"
	ColumnsPKFK ColumnDisplay = "pkfk"
	ColumnsNone ColumnDisplay = "none"
)

// ParseColumnDisplay validates a column display mode.
func ParseColumnDisplay(s string) (ColumnDisplay, error) {
	switch ColumnDisplay(s) {
	case ColumnsAll, ColumnsPKFK, ColumnsNone:
		return ColumnDisplay(s), nil
	case "":
		return ColumnsAll, nil
	}
	return "", fmt.Errorf("invalid column display %q (want all, pkfk or none)", s)
}

// DefaultGridSize is the snap grid size in world units.
const DefaultGridSize = 20

// Options controls what the builder includes and how nodes are drawn.
type Options struct {
	ColumnDisplay ColumnDisplay `json:"column_display" bson:"column_display"`
	ShowDataTypes bool          `json:"show_data_types" bson:"show_data_types"`
	ShowNullable  bool          `json:"show_nullable" bson:"show_nullable"`
	ShowIndexes   bool          `json:"show_indexes" bson:"show_indexes"`
	ShowGrid      bool          `json:"show_grid" bson:"show_grid"`
	ShowMinimap   bool          `json:"show_minimap" bson:"show_minimap"`
	SnapToGrid    bool          `json:"snap_to_grid" bson:"snap_to_grid"`
	ColorBySchema bool          `json:"color_by_schema" bson:"color_by_schema"`
	GridSize      float64       `json:"grid_size" bson:"grid_size"`
}

// DefaultOptions returns the default display options: every column with
// types and nullability, no indexes, grid shown but not snapped, colored by
// schema.
func DefaultOptions() Options {
	return Options{
		ColumnDisplay: ColumnsAll,
		ShowDataTypes: true,
		ShowNullable:  true,
		ShowGrid:      true,
		ColorBySchema: true,
		GridSize:      DefaultGridSize,
	}
}

// Normalize fills zero values with defaults.
func (o *Options) Normalize() {
	if o.ColumnDisplay == "" {
		o.ColumnDisplay = ColumnsAll
	}
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
}

// SameNodeModel reports whether o and p build identical nodes. Column
// display and index rows decide node sizes and ColorBySchema decides node
// colors; the remaining options only change how nodes are drawn.
func (o Options) SameNodeModel(p Options) bool {
	o.Normalize()
	p.Normalize()
	return o.ColumnDisplay == p.ColumnDisplay &&
		o.ShowIndexes == p.ShowIndexes &&
		o.ColorBySchema == p.ColorBySchema
}

// LayoutState is the positional part of a saved diagram.
type LayoutState struct {
	Algorithm     string                `json:"algorithm" bson:"algorithm"`
	NodePositions map[string]geom.Point `json:"node_positions" bson:"node_positions"`
	Viewport      viewport.Viewport     `json:"viewport" bson:"viewport"`
}

// Config is a saved diagram. It is only written by an explicit save.
type Config struct {
	ID           string      `json:"id" bson:"_id"`
	ConnectionID string      `json:"connection_id" bson:"connection_id"`
	Name         string      `json:"name" bson:"name"`
	Schemas      []string    `json:"schemas" bson:"schemas"`
	Include      []string    `json:"include,omitempty" bson:"include,omitempty"`
	Exclude      []string    `json:"exclude,omitempty" bson:"exclude,omitempty"`
	Options      Options     `json:"options" bson:"options"`
	Layout       LayoutState `json:"layout" bson:"layout"`
	CreatedAt    time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" bson:"updated_at"`
}
