package classify

// Tally counts canonical pairs. Every pair lands in exactly one cross-tab cell
// and, when scope-aware, in exactly one scope bucket.
type Tally struct {
	IntraDeref    int `json:"intra_deref"`
	IntraNonDeref int `json:"intra_non_deref"`
	InterDeref    int `json:"inter_deref"`
	InterNonDeref int `json:"inter_non_deref"`

	ScopeAware        bool `json:"scope_aware"`
	BothGlobal        int  `json:"both_global"`
	OneGlobalOneLocal int  `json:"one_global_one_local"`
	SameFunction      int  `json:"same_function"`
	DifferentFunction int  `json:"different_function"`
}

func (t *Tally) add(e Entry) {
	switch {
	case e.Flags.IntraProcedural && e.Flags.Dereferenced:
		t.IntraDeref++
	case e.Flags.IntraProcedural:
		t.IntraNonDeref++
	case e.Flags.Dereferenced:
		t.InterDeref++
	default:
		t.InterNonDeref++
	}

	switch e.Scope {
	case ScopeBothGlobal:
		t.BothGlobal++
	case ScopeOneGlobalOneLocal:
		t.OneGlobalOneLocal++
	case ScopeSameFunction:
		t.SameFunction++
	case ScopeDifferentFunction:
		t.DifferentFunction++
	}
}

func (t Tally) Intra() int    { return t.IntraDeref + t.IntraNonDeref }
func (t Tally) Inter() int    { return t.InterDeref + t.InterNonDeref }
func (t Tally) Deref() int    { return t.IntraDeref + t.InterDeref }
func (t Tally) NonDeref() int { return t.IntraNonDeref + t.InterNonDeref }

// Total is the number of canonical pairs.
func (t Tally) Total() int {
	return t.Intra() + t.Inter()
}
