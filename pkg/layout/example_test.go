package layout_test

import (
	"fmt"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

func ExampleApply() {
	tables := []schema.Table{
		{Schema: "public", Name: "users"},
		{Schema: "public", Name: "orders"},
		{Schema: "public", Name: "items"},
	}
	fks := []schema.ForeignKey{
		{Schema: "public", Table: "orders", Columns: []string{"user_id"},
			RefSchema: "public", RefTable: "users", RefColumns: []string{"id"}},
		{Schema: "public", Table: "items", Columns: []string{"order_id"},
			RefSchema: "public", RefTable: "orders", RefColumns: []string{"id"}},
	}
	d := diagram.Build(tables, fks, nil, diagram.DefaultOptions())

	if err := layout.Apply(d.Nodes, d.Edges, layout.Hierarchical); err != nil {
		panic(err)
	}
	for _, n := range d.Nodes {
		fmt.Printf("%s x=%g y=%g\n", n.ID, n.Position.X, n.Position.Y)
	}
	// Output:
	// public.users x=-110 y=0
	// public.orders x=-110 y=300
	// public.items x=-110 y=600
}

func ExampleCycles() {
	tables := []schema.Table{
		{Schema: "hr", Name: "employees"},
		{Schema: "hr", Name: "departments"},
	}
	fks := []schema.ForeignKey{
		{Schema: "hr", Table: "employees", Columns: []string{"dept_id"},
			RefSchema: "hr", RefTable: "departments", RefColumns: []string{"id"}},
		{Schema: "hr", Table: "departments", Columns: []string{"manager_id"},
			RefSchema: "hr", RefTable: "employees", RefColumns: []string{"id"}},
	}
	d := diagram.Build(tables, fks, nil, diagram.DefaultOptions())

	cycles, _ := layout.Cycles(d.Nodes, d.Edges)
	fmt.Println(cycles)
	// Output:
	// [[hr.employees hr.departments]]
}
