package domain

// MemberRef is a read-only projection of board membership, used for
// mention autocomplete and rendering.
type MemberRef struct {
	ID          string `bson:"_id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name"`
}

// SectionRef is a read-only projection of a board section.
type SectionRef struct {
	ID    string `bson:"_id" json:"id"`
	Title string `bson:"title" json:"title"`
}

// Broadcast pseudo-members fan a mention out to a role-filtered audience
// instead of one user. They are fixed and always matchable.
var BroadcastMembers = []MemberRef{
	{ID: "broadcast:everyone", DisplayName: "everyone"},
	{ID: "broadcast:student", DisplayName: "student"},
	{ID: "broadcast:teacher", DisplayName: "teacher"},
}

// IsBroadcast reports whether id names a broadcast pseudo-member.
func IsBroadcast(id string) bool {
	for _, b := range BroadcastMembers {
		if b.ID == id {
			return true
		}
	}
	return false
}

// PendingAttachment is a file staged for one message being composed. It is
// never persisted; PreviewURL must be released on submit or removal.
type PendingAttachment struct {
	Kind        Kind
	Name        string
	ContentType string
	Data        []byte
	PreviewURL  string
}
