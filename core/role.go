package core

// A RoleTier is the capability tier of an actor, supplied by the identity
// provider. It replaces the numeric role ids of the legacy schema.
type RoleTier int

const (
	Admin RoleTier = iota + 1
	OverallFocalPerson
	DimensionLeader
	DimensionMember
)

func (r RoleTier) String() string {
	switch r {
	case Admin:
		return "admin"
	case OverallFocalPerson:
		return "overall_focal_person"
	case DimensionLeader:
		return "dimension_leader"
	case DimensionMember:
		return "dimension_member"
	}
	return "unknown"
}

func (r RoleTier) Valid() bool {
	switch r {
	case Admin, OverallFocalPerson, DimensionLeader, DimensionMember:
		return true
	default:
		return false
	}
}

// AdminTier reports whether the role may perform privileged operations like
// resetting a folder PIN.
func (r RoleTier) AdminTier() bool {
	return r == Admin || r == OverallFocalPerson
}

// LeaderTier reports whether the role has the full set of workflow edges.
// Admin-tier roles are included.
func (r RoleTier) LeaderTier() bool {
	return r.AdminTier() || r == DimensionLeader
}

// ParseRoleTier maps the wire name of a role to its tier.
func ParseRoleTier(s string) (RoleTier, bool) {
	switch s {
	case "admin":
		return Admin, true
	case "overall_focal_person":
		return OverallFocalPerson, true
	case "dimension_leader":
		return DimensionLeader, true
	case "dimension_member":
		return DimensionMember, true
	}
	return 0, false
}

// An Actor is whoever calls into the engine. Role and home dimension are
// trusted input from the identity provider.
type Actor struct {
	Role        RoleTier
	DimensionID int
	Name        string // for audit payloads, may be empty
}
