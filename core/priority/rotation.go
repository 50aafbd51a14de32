package priority

import "github.com/kilianp07/oncall/core/model"

// Rotate advances a grouping by one step: the first group moves to the end
// of the sequence and, independently, the first member of every group moves
// to the end of that group. The input is not modified.
func Rotate(g model.Groups) model.Groups {
	out := make(model.Groups, 0, len(g))
	if len(g) > 0 {
		out = append(out, g[1:]...)
		out = append(out, g[0])
	}
	for i, grp := range out {
		rotated := make([]string, 0, len(grp))
		if len(grp) > 0 {
			rotated = append(rotated, grp[1:]...)
			rotated = append(rotated, grp[0])
		}
		out[i] = rotated
	}
	return out
}

// Reconcile prepares a rotation base against the current team membership:
// identifiers no longer on the team are dropped and members missing from
// the base are appended, in the given order, to the last group.
func Reconcile(base model.Groups, members []string) model.Groups {
	on := make(map[string]struct{}, len(members))
	for _, id := range members {
		on[id] = struct{}{}
	}
	out := base.Filter(func(id string) bool {
		_, ok := on[id]
		return ok
	})
	present := out.Members()
	for _, id := range members {
		if _, ok := present[id]; !ok {
			out = out.WithMember(id)
		}
	}
	return out
}

// Ranking flattens a snapshot into priority order, skipping identifiers that
// are no longer team members. Stale snapshots are filtered here rather than
// rewritten.
func Ranking(g model.Groups, members []string) []string {
	on := make(map[string]struct{}, len(members))
	for _, id := range members {
		on[id] = struct{}{}
	}
	flat := g.Flatten()
	out := make([]string, 0, len(flat))
	for _, id := range flat {
		if _, ok := on[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
