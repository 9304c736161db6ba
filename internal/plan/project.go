package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// ProjectItem is one projected output column: an expression plus its
// display name (alias, or the expression's own ColumnName()).
type ProjectItem struct {
	Expr  expr.Node
	Alias string
}

// Project evaluates a list of expressions per child tuple, building a new
// schema from their names, per spec §4.6. SELECT * is represented as a
// Project with one VarRef item per child column; its output schema, like
// every Project's, holds column names and inferred types but no table
// qualifiers.
type Project struct {
	base
	Child Node
	Items []ProjectItem
}

func NewProject(child Node, items []ProjectItem) *Project {
	return &Project{Child: child, Items: items}
}

func (p *Project) Prepare() error {
	if err := p.Child.Prepare(); err != nil {
		return err
	}
	childSch := p.Child.Schema()
	cols := make([]schema.ColumnInfo, len(p.Items))
	for i, item := range p.Items {
		name := item.Alias
		if name == "" {
			name = item.Expr.ColumnName()
		}
		cols[i] = schema.ColumnInfo{Name: name, Type: inferType(item.Expr, childSch)}
	}
	p.sch = schema.New(cols)

	childCost := p.Child.Cost()
	p.cost = Cost{
		Tuples:        childCost.Tuples,
		AvgTupleBytes: childCost.AvgTupleBytes,
		CPUCost:       childCost.CPUCost + childCost.Tuples*float64(len(p.Items)),
		BlockIOs:      childCost.BlockIOs,
		LargeSeeks:    childCost.LargeSeeks,
	}
	p.stats = Stats{Columns: make([]*stats.ColumnStats, len(p.Items))}
	childStats := p.Child.Stats()
	for i, item := range p.Items {
		if v, ok := item.Expr.(*expr.VarRef); ok {
			if idx, err := childSch.Resolve(v.TableName, v.ColName); err == nil && idx < len(childStats.Columns) {
				p.stats.Columns[i] = childStats.Columns[idx]
			}
		}
	}
	return nil
}

func (p *Project) SetParentEnv(parent *expr.Environment) {
	p.parentEnv = parent
	p.Child.SetParentEnv(parent)
}

func (p *Project) Initialize() error { return p.Child.Initialize() }

func (p *Project) GetNextTuple() (schema.Tuple, error) {
	t, err := p.Child.GetNextTuple()
	if err != nil || t == nil {
		return nil, err
	}
	childSch := p.Child.Schema()
	env := expr.New(p.parentEnv)
	env.AddScope(childSch, t)
	values := make([]any, len(p.Items))
	for i, item := range p.Items {
		v, err := item.Expr.Evaluate(env)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return schema.NewTupleLiteral(p.sch, values), nil
}

func (p *Project) CleanUp() error { return p.Child.CleanUp() }

func (p *Project) Describe(depth int) string {
	names := ""
	for i, item := range p.Items {
		if i > 0 {
			names += ", "
		}
		names += item.Expr.ColumnName()
	}
	return indent(depth) + "Project(" + names + ")\n" + p.Child.Describe(depth+1)
}

// inferType best-effort resolves a projected expression's output type: a
// bare column reference keeps its source type; everything else (arithmetic,
// function calls, subqueries) is reported untyped since this module's
// expression tree is not statically typed.
func inferType(e expr.Node, sch *schema.Schema) schema.ColumnType {
	if v, ok := e.(*expr.VarRef); ok {
		if idx, err := sch.Resolve(v.TableName, v.ColName); err == nil {
			return sch.Columns[idx].Type
		}
	}
	return schema.ColumnType{Kind: schema.TVarChar, MaxLen: 255}
}
