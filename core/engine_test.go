package core_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/hklemm/dimdocs/core"
	"github.com/hklemm/dimdocs/sqldb"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestDB builds a CoreDB on an in-memory sqlite database with a
// settable clock.
func newTestDB(t *testing.T) (*core.CoreDB, *time.Time) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // :memory: is per connection
	t.Cleanup(func() { sqlDB.Close() })

	var db = &core.CoreDB{}
	db.DimensionDB = sqldb.NewDimensionDB(sqlDB)
	db.ItemDB = sqldb.NewItemDB(sqlDB)
	db.LockDB = sqldb.NewLockDB(sqlDB)
	db.ShareDB = sqldb.NewShareDB(sqlDB)
	db.TaskLockDB = sqldb.NewTaskLockDB(sqlDB)
	db.SqlDB = sqlDB

	var now = time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)
	db.Now = func() time.Time { return now }

	return db, &now
}

func mkDimension(t *testing.T, db *core.CoreDB, name string) int {
	t.Helper()
	require.NoError(t, db.InsertDimension(name))
	d, err := db.GetDimensionByName(name)
	require.NoError(t, err)
	return d.ID()
}

func mkActor(role core.RoleTier, dimension int) core.Actor {
	return core.Actor{Role: role, DimensionID: dimension, Name: "test"}
}

func mkFolder(t *testing.T, db *core.CoreDB, actor core.Actor, parentID int, name string) int {
	t.Helper()
	result, err := db.PerformCreate(actor, "session", parentID, core.Folder, name)
	require.NoError(t, err)
	return result.ItemID
}

func mkFile(t *testing.T, db *core.CoreDB, actor core.Actor, parentID int, name string) int {
	t.Helper()
	result, err := db.PerformCreate(actor, "session", parentID, core.File, name)
	require.NoError(t, err)
	return result.ItemID
}

func openItem(t *testing.T, db *core.CoreDB, id int) *core.Item {
	t.Helper()
	item, err := db.OpenItem(id)
	require.NoError(t, err)
	return item
}

// setStatus walks the item through legal leader transitions until it carries
// the wanted status.
func setStatus(t *testing.T, db *core.CoreDB, leader core.Actor, itemID int, want core.Status) {
	t.Helper()
	var path = map[core.Status]core.Status{
		core.ForChecking: core.Draft,
		core.Checked:     core.ForChecking,
		core.Revisions:   core.Checked,
	}
	var chain []core.Status
	for s := want; s != core.Draft; s = path[s] {
		chain = append([]core.Status{s}, chain...)
	}
	for _, s := range chain {
		_, err := db.PerformStatusChange(leader, "session", itemID, s)
		require.NoError(t, err)
	}
}

func requireKind(t *testing.T, err error, kind core.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, core.KindOf(err))
}
