package mention

import (
	"strings"

	"github.com/classboard/board-stream/internal/domain"
)

// Suggestions returned for an active "@" query. Broadcast pseudo-members are
// a separate group, ranked before regular members.
type Suggestions struct {
	Broadcast []domain.MemberRef
	Members   []domain.MemberRef
}

const defaultMemberCap = 5

// MatchMembers filters the candidate pool for an active "@" query. Matching
// is case-insensitive, prefix first; if prefix yields nothing the query
// falls back to substring containment. An empty query returns a capped
// default list to bound dropdown height.
func MatchMembers(query string, members []domain.MemberRef) Suggestions {
	if query == "" {
		capped := members
		if len(capped) > defaultMemberCap {
			capped = capped[:defaultMemberCap]
		}
		return Suggestions{
			Broadcast: append([]domain.MemberRef(nil), domain.BroadcastMembers...),
			Members:   append([]domain.MemberRef(nil), capped...),
		}
	}
	return Suggestions{
		Broadcast: filterRefs(query, domain.BroadcastMembers),
		Members:   filterRefs(query, members),
	}
}

// MatchSections filters the section list for an active "#" query, same
// prefix-then-substring policy as members.
func MatchSections(query string, sections []domain.SectionRef) []domain.SectionRef {
	if query == "" {
		capped := sections
		if len(capped) > defaultMemberCap {
			capped = capped[:defaultMemberCap]
		}
		return append([]domain.SectionRef(nil), capped...)
	}
	q := strings.ToLower(query)
	var prefix, contains []domain.SectionRef
	for _, s := range sections {
		t := strings.ToLower(s.Title)
		if strings.HasPrefix(t, q) {
			prefix = append(prefix, s)
		} else if strings.Contains(t, q) {
			contains = append(contains, s)
		}
	}
	if len(prefix) > 0 {
		return prefix
	}
	return contains
}

func filterRefs(query string, pool []domain.MemberRef) []domain.MemberRef {
	q := strings.ToLower(query)
	var prefix, contains []domain.MemberRef
	for _, m := range pool {
		name := strings.ToLower(m.DisplayName)
		if strings.HasPrefix(name, q) {
			prefix = append(prefix, m)
		} else if strings.Contains(name, q) {
			contains = append(contains, m)
		}
	}
	if len(prefix) > 0 {
		return prefix
	}
	return contains
}
