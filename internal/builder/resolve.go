package builder

import (
	"sort"
	"strings"

	"github.com/roach88/molbuild/internal/mol"
)

// Identity returns the task id that sorts first by TaskKey. Every id is
// parsed, so a single malformed id fails the whole group.
func Identity(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", &mol.Error{Code: mol.ErrCodeEmptyGroup, Message: "no task ids to derive identity from"}
	}
	bestID := ""
	var best mol.TaskKey
	for i, id := range ids {
		k, err := mol.ParseTaskKey(id)
		if err != nil {
			return "", err
		}
		if i == 0 || k.Less(best) || (!best.Less(k) && id < bestID) {
			bestID, best = id, k
		}
	}
	return bestID, nil
}

// Resolve picks or aggregates one value per target field. The result is
// ordered by target field.
//
// Within a field candidates rank by quality (descending), then energy
// (ascending), then task id and rule position so the order is total.
// If any candidate of the field comes from an aggregate rule, the value is
// the list of all candidate values in rank order and the field is not
// tracked. Otherwise the first-ranked candidate wins.
func Resolve(candidates []mol.Candidate) []mol.Resolved {
	byField := make(map[string][]mol.Candidate)
	for _, c := range candidates {
		byField[c.TargetField] = append(byField[c.TargetField], c)
	}

	fields := make([]string, 0, len(byField))
	for f := range byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]mol.Resolved, 0, len(fields))
	for _, f := range fields {
		cs := byField[f]
		rankCandidates(cs)

		aggregate := false
		for _, c := range cs {
			if c.Aggregate {
				aggregate = true
				break
			}
		}

		if aggregate {
			values := make([]any, len(cs))
			for i, c := range cs {
				values[i] = c.Value
			}
			out = append(out, mol.Resolved{TargetField: f, Value: values, Track: false, Winner: cs[0]})
			continue
		}
		out = append(out, mol.Resolved{TargetField: f, Value: cs[0].Value, Track: cs[0].Track, Winner: cs[0]})
	}
	return out
}

// rankCandidates sorts candidates best first.
func rankCandidates(cs []mol.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Quality != b.Quality {
			return a.Quality > b.Quality
		}
		if a.Energy != b.Energy {
			return a.Energy < b.Energy
		}
		if c := compareIDs(a.TaskID, b.TaskID); c != 0 {
			return c < 0
		}
		return a.RuleIndex < b.RuleIndex
	})
}

// Origins builds provenance for every tracked resolved field.
func Origins(resolved []mol.Resolved) []mol.Origin {
	var out []mol.Origin
	for _, r := range resolved {
		if !r.Track {
			continue
		}
		out = append(out, mol.Origin{
			TargetField: r.TargetField,
			TaskType:    r.Winner.TaskType,
			TaskID:      r.Winner.TaskID,
			LastUpdated: r.Winner.LastUpdated,
		})
	}
	return out
}

// compareIDs orders ids by TaskKey. Unparsable ids sort after parsable ones
// in byte order.
func compareIDs(a, b string) int {
	c, err := mol.CompareTaskIDs(a, b)
	if err == nil {
		return c
	}
	_, errA := mol.ParseTaskKey(a)
	_, errB := mol.ParseTaskKey(b)
	switch {
	case errA == nil && errB != nil:
		return -1
	case errA != nil && errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// sortTaskIDs de-duplicates and orders ids by TaskKey.
func sortTaskIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return compareIDs(out[i], out[j]) < 0
	})
	return out
}
