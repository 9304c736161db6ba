package planner

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/plan"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// buildProject implements spec §4.7 step 7: a Project node reflecting the
// SELECT list, with `*`/`t.*` items expanded against node's own schema.
// Expansion needs that schema before Project can be built, so node is
// Prepared here; internal/plan's Prepare is safe to call again once the
// finished tree is Prepared from its root at the end of MakePlan.
func buildProject(node plan.Node, items []SelectItem) (plan.Node, error) {
	if err := node.Prepare(); err != nil {
		return nil, err
	}
	childSch := node.Schema()

	var projItems []plan.ProjectItem
	for _, it := range items {
		if !it.Star {
			projItems = append(projItems, plan.ProjectItem{Expr: it.Expr, Alias: it.Alias})
			continue
		}
		for _, col := range childSch.Columns {
			if it.StarTable != "" && col.TableName != it.StarTable {
				continue
			}
			projItems = append(projItems, plan.ProjectItem{
				Expr: &expr.VarRef{TableName: col.TableName, ColName: col.Name},
			})
		}
	}
	return plan.NewProject(node, projItems), nil
}

// distinctOverAllColumns implements spec §4.7 step 8's group-by alternative
// to Sort+dedup: grouping by every projected column with no aggregates
// collapses duplicate rows down to one per distinct value combination.
func distinctOverAllColumns(node plan.Node) plan.Node {
	sch := node.Schema()
	groupBy := make([]expr.Node, sch.NumColumns())
	for i, col := range sch.Columns {
		groupBy[i] = &expr.VarRef{TableName: col.TableName, ColName: col.Name}
	}
	return plan.NewHashedGroupAggregate(node, groupBy, map[string]*expr.FuncCall{}, nil)
}

// buildSortKeys implements spec §4.7 step 9's Sort construction. sch is the
// schema ORDER BY's expressions resolve against (Project's output, per
// step 7 running before step 9 — see DESIGN.md's scope note on
// ORDER-BY-only aggregates).
func buildSortKeys(sch *schema.Schema, order []OrderItem) ([]plan.SortKey, error) {
	_ = sch
	keys := make([]plan.SortKey, len(order))
	for i, o := range order {
		keys[i] = plan.SortKey{Expr: o.Expr, Desc: o.Desc}
	}
	return keys, nil
}
