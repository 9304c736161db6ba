package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// Rename rewrites its child schema's table qualifier; pure metadata, no
// extra cost, per spec §4.6.
type Rename struct {
	base
	Child     Node
	Qualifier string
}

func NewRename(child Node, qualifier string) *Rename {
	return &Rename{Child: child, Qualifier: qualifier}
}

func (r *Rename) Prepare() error {
	if err := r.Child.Prepare(); err != nil {
		return err
	}
	r.sch = r.Child.Schema().Rename(r.Qualifier)
	r.cost = r.Child.Cost()
	r.stats = r.Child.Stats()
	return nil
}

func (r *Rename) SetParentEnv(parent *expr.Environment) {
	r.parentEnv = parent
	r.Child.SetParentEnv(parent)
}

func (r *Rename) Initialize() error                  { return r.Child.Initialize() }
func (r *Rename) GetNextTuple() (schema.Tuple, error) { return r.Child.GetNextTuple() }
func (r *Rename) CleanUp() error                      { return r.Child.CleanUp() }

func (r *Rename) Describe(depth int) string {
	return indent(depth) + "Rename(" + r.Qualifier + ")\n" + r.Child.Describe(depth+1)
}
