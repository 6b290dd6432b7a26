package core

import "sort"

// AccessLevel is the resolved access of a dimension to an item. Grants store
// only AccessView and AccessFull; AccessOwner and AccessDenied exist as
// resolution results and are never persisted.
type AccessLevel string

const (
	AccessView   AccessLevel = "view"
	AccessFull   AccessLevel = "full_access"
	AccessOwner  AccessLevel = "owner"
	AccessDenied AccessLevel = "denied"
)

// Grantable reports whether the level may be stored in a grant.
func (l AccessLevel) Grantable() bool {
	return l == AccessView || l == AccessFull
}

// A ShareGrant authorizes a non-owning dimension to view or fully access one
// specific item. Grants are flat: a grant on a folder says nothing about the
// folder's children.
type ShareGrant struct {
	ID              int         `json:"id"`
	ItemID          int         `json:"itemId"`
	ItemKind        ItemKind    `json:"itemKind"`
	FromDimension   int         `json:"fromDimension"`
	ToDimension     int         `json:"toDimension"`
	ToDimensionName string      `json:"toDimensionName"`
	AccessLevel     AccessLevel `json:"accessLevel"`
	TsCreated       int64       `json:"tsCreated"`
}

type ShareDB interface {
	GrantsByItem(itemID int) ([]ShareGrant, error) // ordered by target dimension name
	GetGrant(itemID int, toDimension int) (ShareGrant, bool, error)
	// ApplyGrantDiff runs inserts, updates and deletes in one transaction,
	// deletes last.
	ApplyGrantDiff(itemID int, inserts []ShareGrant, updates []ShareGrant, deleteIDs []int) error
}

// EffectiveAccess resolves the access of a dimension to an item. The home
// dimension is always the owner; owners are never represented as grant rows.
func (c *CoreDB) EffectiveAccess(item *Item, requesterDimension int) (AccessLevel, error) {
	if requesterDimension == item.HomeDimensionID() {
		return AccessOwner, nil
	}
	grant, ok, err := c.ShareDB.GetGrant(item.ID(), requesterDimension)
	if err != nil {
		return AccessDenied, err
	}
	if !ok {
		return AccessDenied, nil
	}
	return grant.AccessLevel, nil
}

// ListGrants shadows ShareDB.GrantsByItem.
func (c *CoreDB) ListGrants(item *Item) ([]ShareGrant, error) {
	return c.ShareDB.GrantsByItem(item.ID())
}

// SaveGrants replaces the item's grant set with desired. desired is the full
// replacement set, not a delta: grants for target dimensions missing from it
// are deleted, new target dimensions are inserted, changed access levels are
// updated. All of it applies as one unit or not at all.
func (c *CoreDB) SaveGrants(item *Item, desired []ShareGrant) error {

	var seen = make(map[int]bool)
	for _, g := range desired {
		if !g.AccessLevel.Grantable() {
			return Errorf(KindValidation, "unknown access level %q", g.AccessLevel)
		}
		if g.ToDimension == item.HomeDimensionID() {
			return Errorf(KindValidation, "dimension %d already owns item %d", g.ToDimension, item.ID())
		}
		if seen[g.ToDimension] {
			return Errorf(KindValidation, "duplicate target dimension %d", g.ToDimension)
		}
		seen[g.ToDimension] = true

		if _, err := c.DimensionDB.GetDimension(g.ToDimension); err != nil {
			if c.DimensionDB.IsNotFound(err) {
				return Errorf(KindValidation, "dimension %d not found", g.ToDimension)
			}
			return err
		}
	}

	existing, err := c.ShareDB.GrantsByItem(item.ID())
	if err != nil {
		return err
	}
	var existingByTarget = make(map[int]ShareGrant, len(existing))
	for _, g := range existing {
		existingByTarget[g.ToDimension] = g
	}

	var inserts, updates []ShareGrant
	for _, g := range desired {
		g.ItemID = item.ID()
		g.ItemKind = item.Kind()
		g.FromDimension = item.HomeDimensionID()

		old, ok := existingByTarget[g.ToDimension]
		if !ok {
			inserts = append(inserts, g)
			continue
		}
		delete(existingByTarget, g.ToDimension)
		if old.AccessLevel != g.AccessLevel {
			g.ID = old.ID
			updates = append(updates, g)
		}
	}

	var deleteIDs []int
	for _, g := range existingByTarget {
		deleteIDs = append(deleteIDs, g.ID)
	}
	sort.Ints(deleteIDs)

	return c.ShareDB.ApplyGrantDiff(item.ID(), inserts, updates, deleteIDs)
}
