package core

// Status is the workflow status of a workspace item. The set is closed.
type Status string

const (
	Draft       Status = "draft"
	ForChecking Status = "for_checking"
	Checked     Status = "checked"
	Revisions   Status = "revisions"
)

func (s Status) Valid() bool {
	switch s {
	case Draft, ForChecking, Checked, Revisions:
		return true
	default:
		return false
	}
}

// LegalTargets returns the statuses an actor of the given tier may move an
// item to. Members keep a revisions self-loop: they can re-save an item in
// revisions, but only the task-revision flow moves it anywhere else.
func LegalTargets(current Status, tier RoleTier) []Status {
	if tier.LeaderTier() {
		switch current {
		case Draft:
			return []Status{ForChecking}
		case ForChecking:
			return []Status{Checked}
		case Checked:
			return []Status{Revisions}
		case Revisions:
			return []Status{Checked}
		}
		return nil
	}
	switch current {
	case Draft:
		return []Status{ForChecking}
	case Revisions:
		return []Status{Revisions}
	}
	return nil
}

// ProposeTransition reports whether the given tier may move an item from
// current to target. An illegal target is rejected, never mapped to a nearby
// legal one. The policy is evaluated against the cascade root only;
// descendants inherit the result verbatim.
func ProposeTransition(current Status, tier RoleTier, target Status) error {
	if !target.Valid() {
		return Errorf(KindValidation, "unknown status %q", target)
	}
	if !current.Valid() {
		return Errorf(KindValidation, "unknown status %q", current)
	}
	for _, t := range LegalTargets(current, tier) {
		if t == target {
			return nil
		}
	}
	return Errorf(KindIllegalTransition, "%s may not move %s to %s", tier, current, target)
}
