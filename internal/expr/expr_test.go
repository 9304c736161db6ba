package expr

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/schema"
)

func testTupleEnv() (*Environment, *schema.Schema) {
	sch := schema.New([]schema.ColumnInfo{
		{TableName: "t", Name: "a", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "t", Name: "b", Type: schema.ColumnType{Kind: schema.TVarChar}},
	})
	tup := schema.NewTupleLiteral(sch, []any{int64(5), "hello"})
	env := New(nil)
	env.AddScope(sch, tup)
	return env, sch
}

func TestVarRefAndArithmetic(t *testing.T) {
	env, _ := testTupleEnv()
	e := &Binary{Op: "+", Left: &VarRef{TableName: "t", ColName: "a"}, Right: &Literal{Val: int64(3)}}
	v, err := e.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(8) {
		t.Errorf("expected 8, got %v", v)
	}
}

func TestComparisonAndBoolean(t *testing.T) {
	env, _ := testTupleEnv()
	pred := &Binary{
		Op:   "AND",
		Left: &Binary{Op: ">", Left: &VarRef{TableName: "t", ColName: "a"}, Right: &Literal{Val: int64(1)}},
		Right: &Like{
			Expr:    &VarRef{TableName: "t", ColName: "b"},
			Pattern: &Literal{Val: "he%"},
		},
	}
	v, err := pred.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Errorf("expected true, got %v", v)
	}
}

func TestNullPropagation(t *testing.T) {
	env := New(nil)
	sch := schema.New([]schema.ColumnInfo{{Name: "x", Type: schema.ColumnType{Kind: schema.TInt}}})
	env.AddScope(sch, schema.NewTupleLiteral(sch, []any{nil}))

	eq := &Binary{Op: "=", Left: &VarRef{ColName: "x"}, Right: &Literal{Val: int64(1)}}
	v, err := eq.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("expected NULL, got %v", v)
	}
}

func TestIsNull(t *testing.T) {
	env := New(nil)
	sch := schema.New([]schema.ColumnInfo{{Name: "x", Type: schema.ColumnType{Kind: schema.TInt}}})
	env.AddScope(sch, schema.NewTupleLiteral(sch, []any{nil}))

	isNull := &IsNullExpr{Expr: &VarRef{ColName: "x"}}
	v, err := isNull.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Errorf("expected true, got %v", v)
	}
}

func TestBetweenAndInList(t *testing.T) {
	env, _ := testTupleEnv()
	between := &Between{Expr: &VarRef{TableName: "t", ColName: "a"}, Low: &Literal{Val: int64(0)}, High: &Literal{Val: int64(10)}}
	v, err := between.Evaluate(env)
	if err != nil || v != true {
		t.Fatalf("expected true, got %v, %v", v, err)
	}

	in := &InList{Expr: &VarRef{TableName: "t", ColName: "a"}, List: []Node{&Literal{Val: int64(5)}, &Literal{Val: int64(6)}}}
	v, err = in.Evaluate(env)
	if err != nil || v != true {
		t.Fatalf("expected true, got %v, %v", v, err)
	}
}

func TestAmbiguousColumn(t *testing.T) {
	schA := schema.New([]schema.ColumnInfo{{TableName: "a", Name: "x", Type: schema.ColumnType{Kind: schema.TInt}}})
	schB := schema.New([]schema.ColumnInfo{{TableName: "b", Name: "x", Type: schema.ColumnType{Kind: schema.TInt}}})
	env := New(nil)
	env.AddScope(schA, schema.NewTupleLiteral(schA, []any{int64(1)}))
	env.AddScope(schB, schema.NewTupleLiteral(schB, []any{int64(2)}))

	if _, err := env.Resolve("", "x"); err == nil {
		t.Fatal("expected ambiguous column error")
	}
	v, err := env.Resolve("a", "x")
	if err != nil || v != int64(1) {
		t.Fatalf("expected qualified resolution to succeed, got %v, %v", v, err)
	}
}

func TestCorrelatedParentEnvironment(t *testing.T) {
	parentSch := schema.New([]schema.ColumnInfo{{TableName: "outer", Name: "id", Type: schema.ColumnType{Kind: schema.TInt}}})
	parent := New(nil)
	parent.AddScope(parentSch, schema.NewTupleLiteral(parentSch, []any{int64(42)}))

	child := New(parent)
	v, err := child.Resolve("outer", "id")
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(42) {
		t.Errorf("expected correlated lookup to reach parent env, got %v", v)
	}
}

func TestCollectAndMakePredicate(t *testing.T) {
	a := &Literal{Val: true}
	b := &Literal{Val: false}
	c := &Literal{Val: true}
	and := &Binary{Op: "AND", Left: &Binary{Op: "AND", Left: a, Right: b}, Right: c}

	conjuncts := CollectConjuncts(and)
	if len(conjuncts) != 3 {
		t.Fatalf("expected 3 conjuncts, got %d", len(conjuncts))
	}
	rebuilt := MakePredicate(conjuncts)
	if _, ok := rebuilt.(*Binary); !ok {
		t.Fatalf("expected rebuilt predicate to be a Binary AND, got %T", rebuilt)
	}
}

func TestAggregateRewriter(t *testing.T) {
	r := NewAggregateRewriter()
	sum := &FuncCall{Name: "SUM", Args: []Node{&VarRef{ColName: "x"}}}
	rewritten, err := r.Rewrite(sum)
	if err != nil {
		t.Fatal(err)
	}
	vr, ok := rewritten.(*VarRef)
	if !ok || vr.ColName != "#AGG0" {
		t.Fatalf("expected rewrite to #AGG0, got %#v", rewritten)
	}
	if r.Aggregates["#AGG0"] != sum {
		t.Fatal("expected original call recorded in Aggregates map")
	}
}

func TestAggregateRewriterRejectsNesting(t *testing.T) {
	r := NewAggregateRewriter()
	nested := &FuncCall{Name: "SUM", Args: []Node{&FuncCall{Name: "COUNT", Args: []Node{&VarRef{ColName: "x"}}}}}
	if _, err := r.Rewrite(nested); err == nil {
		t.Fatal("expected ErrNestedAggregate")
	}
}

func TestAggregateRewriterRecursesIntoBetweenLikeInListInSubquery(t *testing.T) {
	sum := &FuncCall{Name: "SUM", Args: []Node{&VarRef{ColName: "x"}}}

	r := NewAggregateRewriter()
	between := &Between{Expr: sum, Low: &Literal{Val: int64(1)}, High: &Literal{Val: int64(10)}}
	rewritten, err := r.Rewrite(between)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := rewritten.(*Between)
	if !ok {
		t.Fatalf("expected rewritten node to stay a *Between, got %T", rewritten)
	}
	vr, ok := b.Expr.(*VarRef)
	if !ok || vr.ColName != "#AGG0" {
		t.Fatalf("expected Between.Expr rewritten to #AGG0, got %#v", b.Expr)
	}
	if r.Aggregates["#AGG0"] != sum {
		t.Fatal("expected SUM recorded in Aggregates map")
	}

	r = NewAggregateRewriter()
	like := &Like{Expr: &VarRef{ColName: "name"}, Pattern: sum}
	rewritten, err = r.Rewrite(like)
	if err != nil {
		t.Fatal(err)
	}
	l, ok := rewritten.(*Like)
	if !ok {
		t.Fatalf("expected rewritten node to stay a *Like, got %T", rewritten)
	}
	vr, ok = l.Pattern.(*VarRef)
	if !ok || vr.ColName != "#AGG0" {
		t.Fatalf("expected Like.Pattern rewritten to #AGG0, got %#v", l.Pattern)
	}

	r = NewAggregateRewriter()
	inList := &InList{Expr: sum, List: []Node{&Literal{Val: int64(1)}, &Literal{Val: int64(2)}}}
	rewritten, err = r.Rewrite(inList)
	if err != nil {
		t.Fatal(err)
	}
	il, ok := rewritten.(*InList)
	if !ok {
		t.Fatalf("expected rewritten node to stay an *InList, got %T", rewritten)
	}
	vr, ok = il.Expr.(*VarRef)
	if !ok || vr.ColName != "#AGG0" {
		t.Fatalf("expected InList.Expr rewritten to #AGG0, got %#v", il.Expr)
	}

	r = NewAggregateRewriter()
	inSub := &InSubquery{Expr: sum, Plan: nil}
	rewritten, err = r.Rewrite(inSub)
	if err != nil {
		t.Fatal(err)
	}
	is, ok := rewritten.(*InSubquery)
	if !ok {
		t.Fatalf("expected rewritten node to stay an *InSubquery, got %T", rewritten)
	}
	vr, ok = is.Expr.(*VarRef)
	if !ok || vr.ColName != "#AGG0" {
		t.Fatalf("expected InSubquery.Expr rewritten to #AGG0, got %#v", is.Expr)
	}
}

func TestContainsAggregate(t *testing.T) {
	e := &Binary{Op: ">", Left: &FuncCall{Name: "COUNT", Star: true}, Right: &Literal{Val: int64(1)}}
	if !ContainsAggregate(e) {
		t.Fatal("expected ContainsAggregate to find the COUNT(*) call")
	}
	if ContainsAggregate(&VarRef{ColName: "x"}) {
		t.Fatal("expected no aggregate in a bare VarRef")
	}
}
