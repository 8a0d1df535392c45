package classify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteListing prints every entry in the checker's own report format followed by the pair count.
func WriteListing(w io.Writer, res Result) error {
	bw := bufio.NewWriter(w)
	for _, e := range res.Entries {
		fmt.Fprintln(bw, "Missing alias:")
		fmt.Fprintf(bw, "[%d]%s\n", e.First.ID, e.First.Description)
		fmt.Fprintf(bw, "[%d]%s\n", e.Second.ID, e.Second.Description)
	}
	fmt.Fprintf(bw, "Total missing alias pairs: %d\n", len(res.Entries))
	return bw.Flush()
}

// WriteSummary prints the intra/inter by deref/non-deref table and, when present, the scope buckets.
func WriteSummary(w io.Writer, res Result) error {
	t := res.Tally
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "\tderef\tnon-deref\ttotal\t\n")
	fmt.Fprintf(tw, "intra\t%d\t%d\t%d\t\n", t.IntraDeref, t.IntraNonDeref, t.Intra())
	fmt.Fprintf(tw, "inter\t%d\t%d\t%d\t\n", t.InterDeref, t.InterNonDeref, t.Inter())
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t\n", t.Deref(), t.NonDeref(), t.Total())
	if err := tw.Flush(); err != nil {
		return err
	}

	if t.ScopeAware {
		fmt.Fprintf(tw, "both global\t%d\t\n", t.BothGlobal)
		fmt.Fprintf(tw, "one global one local\t%d\t\n", t.OneGlobalOneLocal)
		fmt.Fprintf(tw, "same function\t%d\t\n", t.SameFunction)
		fmt.Fprintf(tw, "different function\t%d\t\n", t.DifferentFunction)
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d reports, %d distinct missing alias pairs\n", res.Reports, t.Total())
	return err
}

// WriteJSON encodes res with stable field order.
func WriteJSON(w io.Writer, res Result) error {
	if res.Entries == nil {
		res.Entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
