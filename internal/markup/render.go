package markup

import (
	"regexp"
	"sort"
	"strings"

	"github.com/classboard/board-stream/internal/domain"
)

type RunKind int

const (
	RunPlain RunKind = iota
	RunMention
	RunSection
	RunURL
)

// Run is one styled span of rendered message text. The renderer is
// render-target-agnostic: callers map runs onto whatever node type their
// surface uses.
type Run struct {
	Kind  RunKind `json:"kind"`
	Text  string  `json:"text"`
	RefID string  `json:"ref_id,omitempty"`
}

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

type pattern struct {
	text  string
	kind  RunKind
	refID string
}

// Render re-tokenizes finalized text into plain, mention, section and URL
// runs. URLs are split out first, so a mention-like substring inside a URL
// is never highlighted. Within the remaining segments the leftmost match
// wins; among matches starting at the same offset the longest tag wins,
// which is what keeps "#A B" from being eaten by a section titled "A".
func Render(text string, members []domain.MemberRef, sections []domain.SectionRef) []Run {
	pats := buildPatterns(members, sections)
	var runs []Run
	pos := 0
	for _, loc := range urlRe.FindAllStringIndex(text, -1) {
		runs = append(runs, renderSegment(text[pos:loc[0]], pats)...)
		runs = append(runs, Run{Kind: RunURL, Text: text[loc[0]:loc[1]]})
		pos = loc[1]
	}
	runs = append(runs, renderSegment(text[pos:], pats)...)
	return runs
}

// PlainText concatenates run texts back into the source string.
func PlainText(runs []Run) string {
	out := ""
	for _, r := range runs {
		out += r.Text
	}
	return out
}

func buildPatterns(members []domain.MemberRef, sections []domain.SectionRef) []pattern {
	pats := make([]pattern, 0, len(members)+len(sections)+len(domain.BroadcastMembers))
	for _, s := range sections {
		if s.Title == "" {
			continue
		}
		pats = append(pats, pattern{text: "#" + s.Title, kind: RunSection, refID: s.ID})
	}
	for _, b := range domain.BroadcastMembers {
		pats = append(pats, pattern{text: "@" + b.DisplayName, kind: RunMention, refID: b.ID})
	}
	for _, m := range members {
		if m.DisplayName == "" {
			continue
		}
		pats = append(pats, pattern{text: "@" + m.DisplayName, kind: RunMention, refID: m.ID})
	}
	// longest first so that equal-offset ties prefer the longer tag
	sort.SliceStable(pats, func(i, j int) bool {
		return len(pats[i].text) > len(pats[j].text)
	})
	return pats
}

func renderSegment(seg string, pats []pattern) []Run {
	var runs []Run
	for len(seg) > 0 {
		bestIdx := -1
		var best pattern
		for _, p := range pats {
			idx := strings.Index(seg, p.text)
			if idx < 0 {
				continue
			}
			if bestIdx == -1 || idx < bestIdx {
				bestIdx, best = idx, p
			}
		}
		if bestIdx == -1 {
			runs = append(runs, Run{Kind: RunPlain, Text: seg})
			return runs
		}
		if bestIdx > 0 {
			runs = append(runs, Run{Kind: RunPlain, Text: seg[:bestIdx]})
		}
		runs = append(runs, Run{Kind: best.kind, Text: best.text, RefID: best.refID})
		seg = seg[bestIdx+len(best.text):]
	}
	return runs
}
