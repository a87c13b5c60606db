package reconcile

import "github.com/runger/sessiondeck/internal/rows"

// ResolveSelection computes the selection that survives an update. It is
// a pure function of the previous selection, both snapshots, and an
// optional explicit override identity.
//
// Precedence: an override present in next wins outright; otherwise any
// previously selected identities still present are retained; otherwise
// the nearest still-present item above the topmost removed selection is
// chosen; otherwise the first item in next. Headers are never selected.
func ResolveSelection(prevSelection []string, prev, next rows.Snapshot, override string) []string {
	if override != "" && next.ContainsID(override) {
		return []string{override}
	}

	// Retained identities, ordered by their new position.
	prevSet := make(map[string]bool, len(prevSelection))
	for _, id := range prevSelection {
		prevSet[id] = true
	}
	var retained []string
	for _, r := range next {
		if r.Selectable() && prevSet[r.Session.ID] {
			retained = append(retained, r.Session.ID)
		}
	}
	if len(retained) > 0 {
		return retained
	}

	if len(prevSelection) > 0 {
		if id := nearestSurvivorAbove(prevSelection, prev, next); id != "" {
			return []string{id}
		}
	}

	return firstItem(next)
}

// nearestSurvivorAbove scans upward from just above the topmost
// previously selected row and returns the first item identity that still
// exists in next, or "".
func nearestSurvivorAbove(prevSelection []string, prev, next rows.Snapshot) string {
	top := -1
	for _, id := range prevSelection {
		pos := prev.IndexOfID(id)
		if pos >= 0 && (top < 0 || pos < top) {
			top = pos
		}
	}
	if top < 0 {
		return ""
	}

	for pos := top - 1; pos >= 0; pos-- {
		r := prev[pos]
		if !r.Selectable() {
			continue
		}
		if next.ContainsID(r.Session.ID) {
			return r.Session.ID
		}
	}
	return ""
}

// firstItem returns the default selection: the first selectable row in
// next, or nothing when the snapshot holds only headers.
func firstItem(next rows.Snapshot) []string {
	for _, r := range next {
		if r.Selectable() {
			return []string{r.Session.ID}
		}
	}
	return nil
}
