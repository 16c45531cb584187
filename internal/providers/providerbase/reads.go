package providerbase

// Reads tallies per-source outcomes of one GetUsage call so an adapter
// can tell an empty install from one whose every source failed.
type Reads struct {
	ok   int
	errs []error
}

// Record notes one source. A nil err counts as a successful read.
func (r *Reads) Record(err error) {
	if err == nil {
		r.ok++
		return
	}
	r.errs = append(r.errs, err)
}

// Err returns the first failure when no source could be read.
func (r *Reads) Err() error {
	if r.ok == 0 && len(r.errs) > 0 {
		return r.errs[0]
	}
	return nil
}
