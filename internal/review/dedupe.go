package review

import "sort"

// lineProximity is the distance at which two single-line locations are
// considered overlapping for grouping purposes.
const lineProximity = 2

// Dedupe partitions findings into groups sharing the same (file, category)
// with overlapping or coincident lines, or, for repo-wide findings, the same
// normalized title. Each group of size > 1 is merged into its highest-
// confidence member with a corroboration bonus, unless the group carries
// contradictory severities (P1 vs P3), in which case every member is emitted
// with the conflict flag so a human adjudicates. Dedupe is idempotent:
// running it on its own output produces no further changes.
func Dedupe(findings []Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, group := range groupFindings(findings) {
		out = append(out, resolveGroup(group)...)
	}

	// stable output order regardless of grouping traversal
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func groupFindings(findings []Finding) [][]Finding {
	type key struct {
		file     string
		category Category
		title    string
	}

	located := make(map[key][]Finding)
	repoWide := make(map[key][]Finding)
	var keys []key

	add := func(m map[key][]Finding, k key, f Finding) {
		if _, ok := m[k]; !ok {
			keys = append(keys, k)
		}
		m[k] = append(m[k], f)
	}

	for _, f := range findings {
		if f.RepoWide() {
			add(repoWide, key{category: f.Category, title: normalizedTitle(f.Title)}, f)
			continue
		}
		add(located, key{file: f.File, category: f.Category}, f)
	}

	var groups [][]Finding
	for _, k := range keys {
		if members, ok := repoWide[k]; ok {
			groups = append(groups, members)
			continue
		}
		// located groups cluster further by line proximity
		members := located[k]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Line != members[j].Line {
				return members[i].Line < members[j].Line
			}
			return members[i].ID < members[j].ID
		})
		start := 0
		for i := 1; i <= len(members); i++ {
			if i == len(members) || members[i].Line-members[i-1].Line > lineProximity {
				groups = append(groups, members[start:i])
				start = i
			}
		}
	}
	return groups
}

func resolveGroup(group []Finding) []Finding {
	if len(group) == 1 {
		return group
	}

	if severityConflict(group) {
		for i := range group {
			group[i].Conflict = true
		}
		return group
	}

	// survivor: highest confidence, lowest ID on ties
	best := 0
	for i := 1; i < len(group); i++ {
		if group[i].Confidence > group[best].Confidence ||
			(group[i].Confidence == group[best].Confidence && group[i].ID < group[best].ID) {
			best = i
		}
	}

	survivor := group[best]
	for i, f := range group {
		if i == best {
			continue
		}
		survivor.MergedFrom = append(survivor.MergedFrom, f.ID)
		survivor.MergedFrom = append(survivor.MergedFrom, f.MergedFrom...)
	}
	sort.Strings(survivor.MergedFrom)

	bonus := corroborationBonus * (len(group) - 1)
	survivor.Confidence = clampConfidence(survivor.Confidence + bonus)

	return []Finding{survivor}
}

// severityConflict reports whether the group disagrees by two full severity
// steps (one member says P1 while another says P3 for the same spot).
func severityConflict(group []Finding) bool {
	var hasP1, hasP3 bool
	for _, f := range group {
		switch f.Severity {
		case SeverityP1:
			hasP1 = true
		case SeverityP3:
			hasP3 = true
		}
	}
	return hasP1 && hasP3
}
