package sqldb

import (
	"database/sql"
	"time"

	"github.com/hklemm/dimdocs/core"
)

// rows per UPDATE/DELETE statement within a cascade transaction
const cascadeBatch = 500

type item struct {
	id          int
	parentId    int
	kind        string
	name        string
	dimensionId int
	status      string
	isLocked    bool
	createdBy   string
	tsCreated   int64
	tsUpdated   int64
}

func (i *item) ID() int {
	return i.id
}

func (i *item) ParentID() int {
	return i.parentId
}

func (i *item) Kind() core.ItemKind {
	return core.ItemKind(i.kind)
}

func (i *item) Name() string {
	return i.name
}

func (i *item) HomeDimensionID() int {
	return i.dimensionId
}

func (i *item) Status() core.Status {
	return core.Status(i.status)
}

func (i *item) IsLocked() bool {
	return i.isLocked
}

func (i *item) CreatedBy() string {
	return i.createdBy
}

func (i *item) TsCreated() int64 {
	return i.tsCreated
}

func (i *item) TsUpdated() int64 {
	return i.tsUpdated
}

type ItemDB struct {
	*sql.DB
	childIds      *sql.Stmt
	countChildren *sql.Stmt
	get           *sql.Stmt
	getChildren   *sql.Stmt
	getKind       *sql.Stmt
	insert        *sql.Stmt
	setLocked     *sql.Stmt
	setName       *sql.Stmt
}

const itemColumns = "id, parentId, kind, name, dimensionId, status, isLocked, createdBy, tsCreated, tsUpdated"

func NewItemDB(db *sql.DB) *ItemDB {

	db.Exec(`
		CREATE TABLE IF NOT EXISTS item (
			id INTEGER PRIMARY KEY,
			parentId int(11) NOT NULL, /* 0 for dimension roots */
			kind varchar(8) NOT NULL CHECK(kind IN ('folder', 'file')),
			name varchar(256) NOT NULL,
			dimensionId int(11) NOT NULL,
			status varchar(16) NOT NULL CHECK(status IN ('draft', 'for_checking', 'checked', 'revisions')),
			isLocked int(1) NOT NULL DEFAULT 0,
			pinHash varchar(64) NOT NULL DEFAULT '',
			createdBy varchar(128) NOT NULL DEFAULT '',
			tsCreated INTEGER NOT NULL,
			tsUpdated INTEGER NOT NULL
		);`)
	db.Exec(`CREATE INDEX IF NOT EXISTS item_parent_idx ON item(parentId);`)

	var itemDB = &ItemDB{}
	itemDB.DB = db
	itemDB.childIds = mustPrepare(db, "SELECT id FROM item WHERE parentId = ? ORDER BY id")
	itemDB.countChildren = mustPrepare(db, "SELECT COUNT(1) FROM item WHERE parentId = ?")
	itemDB.get = mustPrepare(db, "SELECT "+itemColumns+" FROM item WHERE id = ? LIMIT 1")
	itemDB.getChildren = mustPrepare(db, "SELECT "+itemColumns+" FROM item WHERE parentId = ? ORDER BY name")
	itemDB.getKind = mustPrepare(db, "SELECT kind FROM item WHERE id = ? LIMIT 1")
	itemDB.insert = mustPrepare(db, "INSERT INTO item (parentId, kind, name, dimensionId, status, createdBy, tsCreated, tsUpdated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	itemDB.setLocked = mustPrepare(db, "UPDATE item SET isLocked = ?, pinHash = ?, tsUpdated = ? WHERE id = ?")
	itemDB.setName = mustPrepare(db, "UPDATE item SET name = ?, tsUpdated = ? WHERE id = ?")
	return itemDB
}

func (db *ItemDB) ChildIDs(id int) ([]int, error) {

	rows, err := db.childIds.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids = []int{}
	for rows.Next() {
		var childId int
		if err = rows.Scan(&childId); err != nil {
			return nil, err
		}
		ids = append(ids, childId)
	}
	return ids, rows.Err()
}

func (db *ItemDB) CountChildren(id int) (int, error) {
	var count int
	return count, db.countChildren.QueryRow(id).Scan(&count)
}

func (db *ItemDB) CountByStatus(ids []int) (map[core.Status]int, error) {

	var counts = map[core.Status]int{}

	for start := 0; start < len(ids); start += cascadeBatch {
		end := start + cascadeBatch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		rows, err := db.Query("SELECT status, COUNT(1) FROM item WHERE id IN ("+placeholders(len(chunk))+") GROUP BY status", intArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var status string
			var count int
			if err = rows.Scan(&status, &count); err != nil {
				rows.Close()
				return nil, err
			}
			counts[core.Status(status)] += count
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return counts, nil
}

func (db *ItemDB) DeleteItems(ids []int) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += cascadeBatch {
		end := start + cascadeBatch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if _, err = tx.Exec("DELETE FROM item WHERE id IN ("+placeholders(len(chunk))+")", intArgs(chunk)...); err != nil {
			tx.Rollback()
			return err
		}
		if _, err = tx.Exec("DELETE FROM share_grant WHERE itemId IN ("+placeholders(len(chunk))+")", intArgs(chunk)...); err != nil {
			tx.Rollback()
			return err
		}
		if _, err = tx.Exec("DELETE FROM unlock_token WHERE itemId IN ("+placeholders(len(chunk))+")", intArgs(chunk)...); err != nil {
			tx.Rollback()
			return err
		}
		if _, err = tx.Exec("DELETE FROM lock_attempt WHERE itemId IN ("+placeholders(len(chunk))+")", intArgs(chunk)...); err != nil {
			tx.Rollback()
			return err
		}
		if _, err = tx.Exec("DELETE FROM task_lock WHERE itemId IN ("+placeholders(len(chunk))+")", intArgs(chunk)...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (db *ItemDB) GetChildren(id int) ([]core.DBItem, error) {

	rows, err := db.getChildren.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children = []core.DBItem{}
	for rows.Next() {
		var child = &item{}
		err := rows.Scan(&child.id, &child.parentId, &child.kind, &child.name, &child.dimensionId, &child.status, &child.isLocked, &child.createdBy, &child.tsCreated, &child.tsUpdated)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

func (db *ItemDB) GetItem(id int) (core.DBItem, error) {
	var i = &item{}
	err := db.get.QueryRow(id).Scan(&i.id, &i.parentId, &i.kind, &i.name, &i.dimensionId, &i.status, &i.isLocked, &i.createdBy, &i.tsCreated, &i.tsUpdated)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (db *ItemDB) InsertItem(parentID int, kind core.ItemKind, name string, dimensionID int, createdBy string) (int, error) {

	if parentID != 0 {
		// a file has no children
		var parentKind string
		if err := db.getKind.QueryRow(parentID).Scan(&parentKind); err != nil {
			return 0, err
		}
		if core.ItemKind(parentKind) != core.Folder {
			return 0, core.Errorf(core.KindValidation, "item %d is not a folder", parentID)
		}
	}

	var now = time.Now().Unix()
	res, err := db.insert.Exec(parentID, string(kind), name, dimensionID, string(core.Draft), createdBy, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (db *ItemDB) IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}

func (db *ItemDB) SetName(i core.DBItem, name string) error {
	_, err := db.setName.Exec(name, time.Now().Unix(), i.ID())
	if err == nil {
		i.(*item).name = name
	}
	return err
}

// SetStatus writes the status to every given row in one transaction. On any
// failure nothing is changed.
func (db *ItemDB) SetStatus(ids []int, status core.Status) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var now = time.Now().Unix()

	for start := 0; start < len(ids); start += cascadeBatch {
		end := start + cascadeBatch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		args := append([]interface{}{string(status), now}, intArgs(chunk)...)
		if _, err = tx.Exec("UPDATE item SET status = ?, tsUpdated = ? WHERE id IN ("+placeholders(len(chunk))+")", args...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (db *ItemDB) SetLocked(i core.DBItem, locked bool, pinHash string) error {
	_, err := db.setLocked.Exec(locked, pinHash, time.Now().Unix(), i.ID())
	if err == nil {
		i.(*item).isLocked = locked
	}
	return err
}
