package expr

// CollectConjuncts flattens nested ANDs into a flat slice of conjuncts,
// per spec §4.4's collectConjuncts.
func CollectConjuncts(e Node) []Node {
	if b, ok := e.(*Binary); ok && b.Op == "AND" {
		return append(CollectConjuncts(b.Left), CollectConjuncts(b.Right)...)
	}
	return []Node{e}
}

// MakePredicate rebuilds a single predicate from a set of conjuncts as a
// right-leaning AND tree, per spec §4.4's makePredicate. Returns nil for an
// empty set, and the bare conjunct for a singleton set.
func MakePredicate(conjuncts []Node) Node {
	if len(conjuncts) == 0 {
		return nil
	}
	result := conjuncts[len(conjuncts)-1]
	for i := len(conjuncts) - 2; i >= 0; i-- {
		result = &Binary{Op: "AND", Left: conjuncts[i], Right: result}
	}
	return result
}

// ReferencedTables returns the set of table qualifiers a predicate
// references (used by the planner to decide where a conjunct can be pushed).
func ReferencedTables(e Node) map[string]bool {
	tables := make(map[string]bool)
	collectTables(e, tables)
	return tables
}

func collectTables(e Node, out map[string]bool) {
	switch n := e.(type) {
	case *VarRef:
		if n.TableName != "" {
			out[n.TableName] = true
		}
	case *Unary:
		collectTables(n.Expr, out)
	case *Binary:
		collectTables(n.Left, out)
		collectTables(n.Right, out)
	case *IsNullExpr:
		collectTables(n.Expr, out)
	case *Between:
		collectTables(n.Expr, out)
		collectTables(n.Low, out)
		collectTables(n.High, out)
	case *Like:
		collectTables(n.Expr, out)
		collectTables(n.Pattern, out)
	case *InList:
		collectTables(n.Expr, out)
		for _, item := range n.List {
			collectTables(item, out)
		}
	case *InSubquery:
		collectTables(n.Expr, out)
	case *FuncCall:
		for _, a := range n.Args {
			collectTables(a, out)
		}
	}
}
