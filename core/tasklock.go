package core

// The task subsystem can force-lock a folder while an assigned task on it is
// outstanding. The flag is independent of the PIN lock: the two are OR'd for
// the effective inert decision and never cross-clear.

type TaskLockDB interface {
	SetTaskLock(itemID int, active bool) error
	TaskLocked(itemID int) (bool, error)
}

// OnTaskAssigned is called by the task subsystem when a task is assigned
// under the folder. The folder becomes inert like under a PIN lock, but no
// PIN is needed to clear it.
func (c *CoreDB) OnTaskAssigned(folderID int) error {

	item, err := c.OpenItem(folderID)
	if err != nil {
		return err
	}
	if item.Kind() != Folder {
		return Errorf(KindValidation, "item %d is not a folder", folderID)
	}

	return c.TaskLockDB.SetTaskLock(folderID, true)
}

// OnTaskResolved is called by the task subsystem once every assignment under
// the folder's governing task is completed or the task itself is deleted.
func (c *CoreDB) OnTaskResolved(folderID int) error {

	item, err := c.OpenItem(folderID)
	if err != nil {
		return err
	}
	if item.Kind() != Folder {
		return Errorf(KindValidation, "item %d is not a folder", folderID)
	}

	return c.TaskLockDB.SetTaskLock(folderID, false)
}
