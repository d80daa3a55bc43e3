package style

// Diff returns the smallest interval [q0, q1) outside of which old and
// new hold the same runs.  Both slices must be sorted and non-overlapping.
func Diff(old, new []StyleRun) (q0, q1 int, changed bool) {
	i := 0
	for i < len(old) && i < len(new) && old[i] == new[i] {
		i++
	}
	if i == len(old) && i == len(new) {
		return 0, 0, false
	}

	ei, ej := len(old)-1, len(new)-1
	for ei >= i && ej >= i && old[ei] == new[ej] {
		ei--
		ej--
	}

	const maxInt = int(^uint(0) >> 1)
	q0 = maxInt
	widen := func(runs []StyleRun) {
		for _, r := range runs {
			q0 = min(q0, r.Start)
			q1 = max(q1, r.End)
		}
	}
	widen(old[i : ei+1])
	widen(new[i : ej+1])
	if q0 == maxInt || q0 >= q1 {
		return 0, 0, false
	}
	return q0, q1, true
}

// PaletteEqual reports whether a and b define the same names with the
// same looks, in any order.
func PaletteEqual(a, b Palette) bool {
	if len(a) != len(b) {
		return false
	}
	for _, e := range a {
		be, ok := b.Lookup(e.Name)
		if !ok || !e.Equal(be) {
			return false
		}
	}
	return true
}
