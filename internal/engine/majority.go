package engine

// voteSet counts mentions of candidate values for one descriptive field.
// The winner is the value with the most mentions; ties break toward the
// value seen first.
type voteSet struct {
	counts map[string]int
	order  []string
}

func newVoteSet() *voteSet {
	return &voteSet{counts: make(map[string]int)}
}

// add records one mention. Empty values are not candidates.
func (v *voteSet) add(val string) {
	if val == "" {
		return
	}
	if _, seen := v.counts[val]; !seen {
		v.order = append(v.order, val)
	}
	v.counts[val]++
}

// winner returns the majority value, or "" when nothing was mentioned.
func (v *voteSet) winner() string {
	best := ""
	bestCount := 0
	for _, val := range v.order {
		if v.counts[val] > bestCount {
			best = val
			bestCount = v.counts[val]
		}
	}
	return best
}
