package core

import "strings"

// Operation names a mutating engine operation for the access check. The lock
// operations are exempt from the inert gate because they are what manages
// the lock itself.
type Operation string

const (
	OpCreateChild  Operation = "create_child"
	OpRename       Operation = "rename"
	OpDelete       Operation = "delete"
	OpStatusChange Operation = "status_change"
	OpLock         Operation = "lock"
	OpUnlock       Operation = "unlock"
	OpResetPin     Operation = "reset_pin"
	OpShareSave    Operation = "share_save"
)

func (op Operation) lockExempt() bool {
	return op == OpLock || op == OpUnlock || op == OpResetPin
}

// CanView reports whether the actor may read the item: any role of the home
// dimension, or any grant level of the actor's dimension. Downloads count as
// viewing, so they stay possible on locked and on for_checking/checked items.
func (c *CoreDB) CanView(actor Actor, item *Item) (bool, error) {
	if actor.DimensionID == item.HomeDimensionID() {
		return true, nil
	}
	level, err := c.EffectiveAccess(item, actor.DimensionID)
	if err != nil {
		return false, err
	}
	return level == AccessView || level == AccessFull, nil
}

// CanMutate is the single mutation gate. A locked item (PIN lock without a
// valid session token, or an active task lock, or both) rejects every
// mutation except the lock operations themselves. Leader and admin tiers
// then pass; members pass only on owned items in draft or revisions status.
// Items reached through a share grant additionally require full_access.
func (c *CoreDB) CanMutate(actor Actor, item *Item, op Operation, sessionID string) error {

	if !actor.Role.Valid() {
		return Errorf(KindPermissionDenied, "unknown role")
	}

	if !op.lockExempt() {
		inert, err := c.IsInertByLock(item, sessionID)
		if err != nil {
			return err
		}
		taskLocked, err := c.TaskLockDB.TaskLocked(item.ID())
		if err != nil {
			return err
		}
		if inert || taskLocked {
			return Errorf(KindPermissionDenied, "item %d is locked", item.ID())
		}
	}

	if actor.DimensionID != item.HomeDimensionID() {
		level, err := c.EffectiveAccess(item, actor.DimensionID)
		if err != nil {
			return err
		}
		if level != AccessFull {
			return Errorf(KindPermissionDenied, "dimension %d has no full access to item %d", actor.DimensionID, item.ID())
		}
	}

	if actor.Role.LeaderTier() {
		return nil
	}

	// member tier
	switch item.Status() {
	case Draft, Revisions:
		return nil
	default:
		return Errorf(KindPermissionDenied, "members may not modify a %s item", item.Status())
	}
}

// StatusChangeResult is the audit payload of a status change.
type StatusChangeResult struct {
	ItemID    int    `json:"itemId"`
	Actor     Actor  `json:"actor"`
	OldStatus Status `json:"oldStatus"`
	NewStatus Status `json:"newStatus"`
	Written   int    `json:"written"` // items written, root included
}

// PerformStatusChange validates the transition against the target item and
// cascades the new status verbatim to every descendant. The write is atomic:
// either all N+1 items carry the new status afterwards, or none does.
func (c *CoreDB) PerformStatusChange(actor Actor, sessionID string, itemID int, target Status) (*StatusChangeResult, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	// reload inside the mutation scope, the status may just have changed
	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.CanMutate(actor, item, OpStatusChange, sessionID); err != nil {
		return nil, err
	}

	// member edges apply only within the member's own dimension
	if !actor.Role.LeaderTier() && actor.DimensionID != item.HomeDimensionID() {
		return nil, Errorf(KindPermissionDenied, "members may not change status of shared items")
	}

	if err := ProposeTransition(item.Status(), actor.Role, target); err != nil {
		return nil, err
	}

	ids, err := c.DescendantIDs(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.ItemDB.SetStatus(append([]int{itemID}, ids...), target); err != nil {
		return nil, Errorf(KindConflict, "item %d: cascade aborted: %v", itemID, err)
	}

	return &StatusChangeResult{
		ItemID:    itemID,
		Actor:     actor,
		OldStatus: item.Status(),
		NewStatus: target,
		Written:   len(ids) + 1,
	}, nil
}

// LockResult is the audit payload of a lock operation.
type LockResult struct {
	ItemID int   `json:"itemId"`
	Actor  Actor `json:"actor"`
	Locked bool  `json:"locked"`
}

func (c *CoreDB) PerformLock(actor Actor, sessionID string, itemID int, pin string) (*LockResult, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.CanMutate(actor, item, OpLock, sessionID); err != nil {
		return nil, err
	}
	if err := c.Lock(item, pin); err != nil {
		return nil, err
	}

	return &LockResult{ItemID: itemID, Actor: actor, Locked: true}, nil
}

// UnlockResult carries the bearer token of a successful unlock.
type UnlockResult struct {
	ItemID int    `json:"itemId"`
	Token  string `json:"token"`
}

// PerformUnlock is gated on viewing, not mutation: whoever can see the item
// and knows the PIN may unlock it, regardless of the item's status.
func (c *CoreDB) PerformUnlock(actor Actor, sessionID string, itemID int, pin string) (*UnlockResult, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	ok, err := c.CanView(actor, item)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Errorf(KindPermissionDenied, "dimension %d may not view item %d", actor.DimensionID, itemID)
	}

	token, err := c.Unlock(item, pin, sessionID)
	if err != nil {
		return nil, err
	}

	return &UnlockResult{ItemID: itemID, Token: token}, nil
}

func (c *CoreDB) PerformResetPin(actor Actor, itemID int, newPin string) (*PinResetReport, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	return c.ResetPin(item, newPin, actor)
}

// ShareSaveResult is the audit payload of a grant replacement.
type ShareSaveResult struct {
	ItemID int          `json:"itemId"`
	Actor  Actor        `json:"actor"`
	Grants []ShareGrant `json:"grants"`
}

// PerformShareSave replaces the item's grant set. Only leaders and admins of
// the owning dimension manage grants.
func (c *CoreDB) PerformShareSave(actor Actor, sessionID string, itemID int, desired []ShareGrant) (*ShareSaveResult, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.CanMutate(actor, item, OpShareSave, sessionID); err != nil {
		return nil, err
	}
	if actor.DimensionID != item.HomeDimensionID() || !actor.Role.LeaderTier() {
		return nil, Errorf(KindPermissionDenied, "grants are managed by leaders of the owning dimension")
	}

	if err := c.SaveGrants(item, desired); err != nil {
		return nil, err
	}

	grants, err := c.ListGrants(item)
	if err != nil {
		return nil, err
	}

	return &ShareSaveResult{ItemID: itemID, Actor: actor, Grants: grants}, nil
}

// CreateResult is the audit payload of an item creation.
type CreateResult struct {
	ItemID    int      `json:"itemId"`
	ParentID  int      `json:"parentId"`
	Kind      ItemKind `json:"kind"`
	Name      string   `json:"name"`
	Dimension int      `json:"dimension"`
}

// PerformCreate creates an item. Top-level folders (parentID 0) belong to the
// actor's dimension and require the leader tier; children inherit the
// parent's dimension and go through the mutation gate of the parent.
func (c *CoreDB) PerformCreate(actor Actor, sessionID string, parentID int, kind ItemKind, name string) (*CreateResult, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Errorf(KindValidation, "name can't be blank")
	}
	if !kind.Valid() {
		return nil, Errorf(KindValidation, "unknown item kind %q", kind)
	}

	if parentID == 0 {
		if kind != Folder {
			return nil, Errorf(KindValidation, "a top-level item must be a folder")
		}
		if !actor.Role.LeaderTier() {
			return nil, Errorf(KindPermissionDenied, "creating a top-level folder requires the leader tier")
		}
		id, err := c.ItemDB.InsertItem(0, kind, name, actor.DimensionID, actor.Name)
		if err != nil {
			return nil, err
		}
		return &CreateResult{ItemID: id, Kind: kind, Name: name, Dimension: actor.DimensionID}, nil
	}

	parent, err := c.OpenItem(parentID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(parent)()

	parent, err = c.OpenItem(parentID)
	if err != nil {
		return nil, err
	}

	if parent.Kind() != Folder {
		return nil, Errorf(KindValidation, "item %d is not a folder", parentID)
	}
	if err := c.CanMutate(actor, parent, OpCreateChild, sessionID); err != nil {
		return nil, err
	}

	id, err := c.ItemDB.InsertItem(parentID, kind, name, parent.HomeDimensionID(), actor.Name)
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		ItemID:    id,
		ParentID:  parentID,
		Kind:      kind,
		Name:      name,
		Dimension: parent.HomeDimensionID(),
	}, nil
}

// RenameResult is the audit payload of a rename.
type RenameResult struct {
	ItemID  int    `json:"itemId"`
	Actor   Actor  `json:"actor"`
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (c *CoreDB) PerformRename(actor Actor, sessionID string, itemID int, name string) (*RenameResult, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Errorf(KindValidation, "name can't be blank")
	}

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.CanMutate(actor, item, OpRename, sessionID); err != nil {
		return nil, err
	}

	var oldName = item.Name()
	if err := c.ItemDB.SetName(item.DBItem, name); err != nil {
		return nil, err
	}

	return &RenameResult{ItemID: itemID, Actor: actor, OldName: oldName, NewName: name}, nil
}

// DeleteResult is the audit payload of a subtree delete.
type DeleteResult struct {
	ItemID  int   `json:"itemId"`
	Actor   Actor `json:"actor"`
	Deleted int   `json:"deleted"` // items removed, root included
}

// PerformDelete removes the item and its whole subtree in one transaction.
func (c *CoreDB) PerformDelete(actor Actor, sessionID string, itemID int) (*DeleteResult, error) {

	item, err := c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	defer c.LockTree(item)()

	item, err = c.OpenItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.CanMutate(actor, item, OpDelete, sessionID); err != nil {
		return nil, err
	}

	ids, err := c.DescendantIDs(itemID)
	if err != nil {
		return nil, err
	}

	if err := c.ItemDB.DeleteItems(append([]int{itemID}, ids...)); err != nil {
		return nil, Errorf(KindConflict, "item %d: delete aborted: %v", itemID, err)
	}

	return &DeleteResult{ItemID: itemID, Actor: actor, Deleted: len(ids) + 1}, nil
}
