// Command nanodb is a thin wiring demonstration for the NanoDB engine: it
// builds the page manager, buffer cache, catalog, planner, session and
// maintenance scheduler, runs a handful of DML/SELECT commands against an
// in-memory table, and prints the results.
//
// This is not the interactive CLI or client/server spec.md §1 places out
// of scope — there is no SQL grammar here, only the Go-level statement
// trees internal/planner and internal/session already operate on. Grounded
// on the teacher's cmd/catalog_demo/main.go: a straight-line main()
// that wires the storage layer together and narrates each step with
// fmt.Println, rather than the teacher's networked cmd/server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/config"
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/maint"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/planner"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/session"
)

var flagBaseDir = flag.String("base-dir", "", "directory for table files (defaults to a temp dir)")

func main() {
	flag.Parse()

	baseDir := *flagBaseDir
	if baseDir == "" {
		d, err := os.MkdirTemp("", "nanodb-demo-")
		if err != nil {
			log.Fatalf("mkdir temp dir: %v", err)
		}
		defer os.RemoveAll(d)
		baseDir = d
	}

	cfg := config.NewRegistry()
	cfg.MarkStarted()

	mgr, err := page.NewManager(baseDir)
	if err != nil {
		log.Fatalf("page manager: %v", err)
	}
	cache := buffer.New(buffer.Config{MaxPages: cfg.GetInt("nanodb.pagecache.size") / cfg.GetInt("nanodb.pagesize"), Policy: cfg.GetPolicy("nanodb.pagecache.policy")})

	cat := newMemCatalog(mgr, cache)

	fmt.Println("=== NanoDB wiring demo ===")

	fmt.Println("\n1. Creating table 'accounts' (id INT, balance INT)...")
	cols := []schema.ColumnInfo{
		{TableName: "accounts", Name: "id", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "accounts", Name: "balance", Type: schema.ColumnType{Kind: schema.TInt}},
	}
	if _, err := cat.createTable("accounts", cols, cfg.GetInt("nanodb.pagesize")); err != nil {
		log.Fatalf("create table: %v", err)
	}

	sess := session.New(cat, &sync.RWMutex{})
	plnr := planner.New(cat)

	fmt.Println("\n2. Inserting 3 rows...")
	ins := sess.ExecuteInsert("accounts", [][]any{
		{int64(1), int64(100)},
		{int64(2), int64(250)},
		{int64(3), int64(75)},
	})
	reportResult("INSERT", ins)

	fmt.Println("\n3. SELECT * FROM accounts...")
	selStmt := &planner.SelectStmt{
		Items: []planner.SelectItem{{Star: true}},
		From:  &planner.TableRef{Name: "accounts"},
		Limit: -1,
	}
	sel := sess.ExecuteSelect(plnr, selStmt)
	reportResult("SELECT", sel)
	printTuples(sel)

	fmt.Println("\n4. UPDATE accounts SET balance = 500 WHERE id = 2...")
	updPred := &expr.Binary{
		Op:    "=",
		Left:  &expr.VarRef{TableName: "accounts", ColName: "id"},
		Right: &expr.Literal{Val: int64(2)},
	}
	upd := sess.ExecuteUpdate("accounts", updPred, []session.Assignment{
		{Column: "balance", Expr: &expr.Literal{Val: int64(500)}},
	})
	reportResult("UPDATE", upd)

	fmt.Println("\n5. DELETE FROM accounts WHERE balance < 100...")
	delPred := &expr.Binary{
		Op:    "<",
		Left:  &expr.VarRef{TableName: "accounts", ColName: "balance"},
		Right: &expr.Literal{Val: int64(100)},
	}
	del := sess.ExecuteDelete("accounts", delPred)
	reportResult("DELETE", del)

	fmt.Println("\n6. SELECT * FROM accounts (final state)...")
	finalSel := sess.ExecuteSelect(plnr, selStmt)
	reportResult("SELECT", finalSel)
	printTuples(finalSel)

	fmt.Println("\n7. Starting the maintenance scheduler for 2 seconds...")
	sched, err := maint.New(cat, cache, cfg, "*/1 * * * * *", "*/1 * * * * *")
	if err != nil {
		log.Fatalf("maint scheduler: %v", err)
	}
	sched.Start()
	time.Sleep(2 * time.Second)
	sched.Stop()

	fmt.Println("\n=== Demo complete ===")
}

func reportResult(label string, res *session.Result) {
	if !res.Success {
		fmt.Printf("   %s failed: %s\n", label, res.Message)
		return
	}
	fmt.Printf("   %s ok (rows affected: %d)\n", label, res.RowsAffected)
}

func printTuples(res *session.Result) {
	if !res.Success {
		return
	}
	for _, t := range res.Tuples {
		fmt.Printf("   -")
		for i := 0; i < t.Schema().NumColumns(); i++ {
			fmt.Printf(" %v", t.ColumnValue(i))
		}
		fmt.Println()
	}
}
