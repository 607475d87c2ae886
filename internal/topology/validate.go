package topology

// Validate checks the structural invariants of a snapshot: unique node ids,
// no self loops, and every edge endpoint present in Nodes.
// Returns a *ValidationError listing every defect, or nil.
func (s Snapshot) Validate() error {
	var problems []Problem

	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if ids[n.ID] {
			problems = append(problems, Problem{Kind: "duplicate_id", NodeID: n.ID})
			continue
		}
		ids[n.ID] = true
	}

	for _, e := range s.Edges {
		switch {
		case e.Source == e.Target:
			problems = append(problems, Problem{Kind: "self_loop", Source: e.Source, Target: e.Target})
		case !ids[e.Source]:
			problems = append(problems, Problem{Kind: "missing_source", Source: e.Source, Target: e.Target})
		case !ids[e.Target]:
			problems = append(problems, Problem{Kind: "missing_target", Source: e.Source, Target: e.Target})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// CheckLocality returns the edges whose endpoints are not within window
// forward positions of each other (0 < target-source <= window).
// Edges with unparseable ids are reported as violations.
func CheckLocality(edges []Edge, window int) []Edge {
	var violations []Edge
	for _, e := range edges {
		i, okSource := ParseNodeID(e.Source)
		j, okTarget := ParseNodeID(e.Target)
		if !okSource || !okTarget {
			violations = append(violations, e)
			continue
		}
		if d := j - i; d <= 0 || d > window {
			violations = append(violations, e)
		}
	}
	return violations
}
