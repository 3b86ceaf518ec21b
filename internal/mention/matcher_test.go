package mention_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/mention"
)

var members = []domain.MemberRef{
	{ID: "u1", DisplayName: "Ada"},
	{ID: "u2", DisplayName: "Ada Lovelace"},
	{ID: "u3", DisplayName: "Grace"},
	{ID: "u4", DisplayName: "Alan"},
	{ID: "u5", DisplayName: "Barbara"},
	{ID: "u6", DisplayName: "Donald"},
	{ID: "u7", DisplayName: "Edsger"},
}

func names(refs []domain.MemberRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.DisplayName)
	}
	return out
}

func TestMatchMembersPrefixFirst(t *testing.T) {
	s := mention.MatchMembers("ad", members)
	assert.Equal(t, []string{"Ada", "Ada Lovelace"}, names(s.Members))
}

func TestMatchMembersSubstringFallback(t *testing.T) {
	// no display name starts with "race", Grace contains it
	s := mention.MatchMembers("race", members)
	assert.Equal(t, []string{"Grace"}, names(s.Members))
}

func TestMatchMembersCaseInsensitive(t *testing.T) {
	s := mention.MatchMembers("GRACE", members)
	assert.Equal(t, []string{"Grace"}, names(s.Members))
}

func TestMatchMembersEmptyQueryIsCapped(t *testing.T) {
	s := mention.MatchMembers("", members)
	assert.Len(t, s.Members, 5)
	assert.Len(t, s.Broadcast, 3)
}

func TestMatchMembersBroadcastGroup(t *testing.T) {
	s := mention.MatchMembers("ev", members)
	require.Len(t, s.Broadcast, 1)
	assert.Equal(t, "everyone", s.Broadcast[0].DisplayName)
	assert.Empty(t, s.Members)
}

func TestMatchSections(t *testing.T) {
	sections := []domain.SectionRef{
		{ID: "s1", Title: "Homework"},
		{ID: "s2", Title: "Home Reading"},
		{ID: "s3", Title: "Projects"},
	}
	got := mention.MatchSections("home", sections)
	require.Len(t, got, 2)
	assert.Equal(t, "Homework", got[0].Title)
	assert.Equal(t, "Home Reading", got[1].Title)

	got = mention.MatchSections("ject", sections)
	require.Len(t, got, 1)
	assert.Equal(t, "Projects", got[0].Title)
}

func TestMatchMembersNoHit(t *testing.T) {
	s := mention.MatchMembers("zzz", members)
	assert.Empty(t, s.Members)
	assert.Empty(t, s.Broadcast)
}
