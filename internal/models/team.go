package models

import "time"

// Role is a user's role inside a team.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// TeamMember is one entry of a team's member list.
type TeamMember struct {
	UserID   string    `db:"user_id" json:"user_id"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Team groups users, channels, tasks and meetings.
type Team struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	OwnerID     string       `db:"owner_id" json:"owner_id"`
	Members     []TeamMember `db:"-" json:"members"`
	ChannelIDs  []string     `db:"-" json:"channel_ids"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

func (t Team) RefID() string { return t.ID }

// Member returns the member entry for userID, if present.
func (t Team) Member(userID string) (TeamMember, bool) {
	for _, m := range t.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return TeamMember{}, false
}

// MemberIDs returns the effective member set: the owner plus every listed member.
func (t Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members)+1)
	seen := map[string]struct{}{}
	if t.OwnerID != "" {
		ids = append(ids, t.OwnerID)
		seen[t.OwnerID] = struct{}{}
	}
	for _, m := range t.Members {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	return ids
}
