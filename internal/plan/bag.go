package plan

import "github.com/nanodb-project/nanodb/internal/schema"

// TupleBag is a test-only leaf node that returns a user-supplied list of
// tuples, per spec §4.6.
type TupleBag struct {
	base
	Tuples []schema.Tuple

	pos       int
	markedPos int
}

func NewTupleBag(sch *schema.Schema, tuples []schema.Tuple) *TupleBag {
	return &TupleBag{base: base{sch: sch}, Tuples: tuples}
}

func (b *TupleBag) Prepare() error {
	b.cost = Cost{Tuples: float64(len(b.Tuples)), CPUCost: float64(len(b.Tuples))}
	return nil
}

func (b *TupleBag) Initialize() error {
	b.pos = 0
	return nil
}

func (b *TupleBag) GetNextTuple() (schema.Tuple, error) {
	if b.pos >= len(b.Tuples) {
		return nil, nil
	}
	t := b.Tuples[b.pos]
	b.pos++
	return t, nil
}

func (b *TupleBag) CleanUp() error { return nil }

func (b *TupleBag) MarkSupported() bool { return true }

func (b *TupleBag) MarkCurrentPosition() error {
	b.markedPos = b.pos
	return nil
}

func (b *TupleBag) ResetToLastMark() error {
	b.pos = b.markedPos
	return nil
}

func (b *TupleBag) Describe(depth int) string {
	return indent(depth) + "TupleBag"
}
