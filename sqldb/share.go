package sqldb

import (
	"database/sql"
	"time"

	"github.com/hklemm/dimdocs/core"
)

type ShareDB struct {
	*sql.DB
	byItem *sql.Stmt
	get    *sql.Stmt
	insert *sql.Stmt
	update *sql.Stmt
	remove *sql.Stmt
}

func NewShareDB(db *sql.DB) *ShareDB {

	db.Exec(`
		CREATE TABLE IF NOT EXISTS share_grant (
			id INTEGER PRIMARY KEY,
			itemId int(11) NOT NULL,
			itemKind varchar(8) NOT NULL,
			fromDimension int(11) NOT NULL,
			toDimension int(11) NOT NULL,
			accessLevel varchar(16) NOT NULL CHECK(accessLevel IN ('view', 'full_access')),
			tsCreated INTEGER NOT NULL,
			UNIQUE(itemId, toDimension)
		);`)

	var shareDB = &ShareDB{}
	shareDB.DB = db
	shareDB.byItem = mustPrepare(db, `
		SELECT g.id, g.itemId, g.itemKind, g.fromDimension, g.toDimension, COALESCE(d.name, ''), g.accessLevel, g.tsCreated
		FROM share_grant g LEFT JOIN dimension d ON d.id = g.toDimension
		WHERE g.itemId = ? ORDER BY d.name`)
	shareDB.get = mustPrepare(db, "SELECT id, itemId, itemKind, fromDimension, toDimension, accessLevel, tsCreated FROM share_grant WHERE itemId = ? AND toDimension = ? LIMIT 1")
	shareDB.insert = mustPrepare(db, "INSERT INTO share_grant (itemId, itemKind, fromDimension, toDimension, accessLevel, tsCreated) VALUES (?, ?, ?, ?, ?, ?)")
	shareDB.update = mustPrepare(db, "UPDATE share_grant SET accessLevel = ? WHERE id = ?")
	shareDB.remove = mustPrepare(db, "DELETE FROM share_grant WHERE id = ?")
	return shareDB
}

func (db *ShareDB) GrantsByItem(itemID int) ([]core.ShareGrant, error) {

	rows, err := db.byItem.Query(itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants = []core.ShareGrant{}
	for rows.Next() {
		var g core.ShareGrant
		var kind, level string
		err := rows.Scan(&g.ID, &g.ItemID, &kind, &g.FromDimension, &g.ToDimension, &g.ToDimensionName, &level, &g.TsCreated)
		if err != nil {
			return nil, err
		}
		g.ItemKind = core.ItemKind(kind)
		g.AccessLevel = core.AccessLevel(level)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (db *ShareDB) GetGrant(itemID int, toDimension int) (core.ShareGrant, bool, error) {

	var g core.ShareGrant
	var kind, level string

	err := db.get.QueryRow(itemID, toDimension).Scan(&g.ID, &g.ItemID, &kind, &g.FromDimension, &g.ToDimension, &level, &g.TsCreated)
	if err == sql.ErrNoRows {
		return core.ShareGrant{}, false, nil
	}
	if err != nil {
		return core.ShareGrant{}, false, err
	}

	g.ItemKind = core.ItemKind(kind)
	g.AccessLevel = core.AccessLevel(level)
	return g, true, nil
}

// ApplyGrantDiff applies inserts, updates and deletes as one transaction.
// Deletes run last, so a failed delete can not leave an old and a new grant
// active for the same target.
func (db *ShareDB) ApplyGrantDiff(itemID int, inserts []core.ShareGrant, updates []core.ShareGrant, deleteIDs []int) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var now = time.Now().Unix()

	for _, g := range inserts {
		_, err = tx.Stmt(db.insert).Exec(itemID, string(g.ItemKind), g.FromDimension, g.ToDimension, string(g.AccessLevel), now)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	for _, g := range updates {
		_, err = tx.Stmt(db.update).Exec(string(g.AccessLevel), g.ID)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	for _, id := range deleteIDs {
		_, err = tx.Stmt(db.remove).Exec(id)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
