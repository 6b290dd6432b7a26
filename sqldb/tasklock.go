package sqldb

import (
	"database/sql"
)

type TaskLockDB struct {
	*sql.DB
	get *sql.Stmt
	set *sql.Stmt
}

func NewTaskLockDB(db *sql.DB) *TaskLockDB {

	db.Exec(`
		CREATE TABLE IF NOT EXISTS task_lock (
			itemId int(11) PRIMARY KEY,
			active int(1) NOT NULL
		);`)

	var taskLockDB = &TaskLockDB{}
	taskLockDB.DB = db
	taskLockDB.get = mustPrepare(db, "SELECT active FROM task_lock WHERE itemId = ? LIMIT 1")
	taskLockDB.set = mustPrepare(db, `
		INSERT INTO task_lock (itemId, active) VALUES (?, ?)
		ON CONFLICT(itemId) DO UPDATE SET active = excluded.active`)
	return taskLockDB
}

func (db *TaskLockDB) SetTaskLock(itemID int, active bool) error {
	_, err := db.set.Exec(itemID, active)
	return err
}

func (db *TaskLockDB) TaskLocked(itemID int) (bool, error) {
	var active bool
	err := db.get.QueryRow(itemID).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return active, err
}
