package sqldb_test

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/hklemm/dimdocs/core"
	"github.com/hklemm/dimdocs/sqldb"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*core.CoreDB, *sql.DB) {
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

	return db, sqlDB
}

func insertTree(t *testing.T, db *core.CoreDB, parentID int, depth, fanout int) []int {
	t.Helper()
	if depth == 0 {
		return nil
	}
	var ids []int
	for i := 0; i < fanout; i++ {
		id, err := db.ItemDB.InsertItem(parentID, core.Folder, "folder", 1, "test")
		require.NoError(t, err)
		ids = append(ids, id)
		ids = append(ids, insertTree(t, db, id, depth-1, fanout)...)
	}
	return ids
}

func TestCascadeCompleteness(t *testing.T) {
	db, _ := newTestDB(t)

	rootID, err := db.ItemDB.InsertItem(0, core.Folder, "root", 1, "test")
	require.NoError(t, err)
	descendants := insertTree(t, db, rootID, 3, 3) // 3 + 9 + 27

	ids, err := db.DescendantIDs(rootID)
	require.NoError(t, err)
	require.ElementsMatch(t, descendants, ids)

	require.NoError(t, db.ItemDB.SetStatus(append([]int{rootID}, ids...), core.ForChecking))

	for _, id := range append([]int{rootID}, ids...) {
		item, err := db.ItemDB.GetItem(id)
		require.NoError(t, err)
		require.Equal(t, core.ForChecking, item.Status())
	}
}

// A cascade that fails partway must leave zero of the N+1 items changed.
func TestCascadeRollback(t *testing.T) {
	db, sqlDB := newTestDB(t)

	rootID, err := db.ItemDB.InsertItem(0, core.Folder, "root", 1, "test")
	require.NoError(t, err)
	descendants := insertTree(t, db, rootID, 2, 4) // 4 + 16

	var all = append([]int{rootID}, descendants...)
	var failID = descendants[len(descendants)-1]

	// force a failure on the last row of the cascade
	_, err = sqlDB.Exec(fmt.Sprintf(`
		CREATE TRIGGER fail_late BEFORE UPDATE ON item
		WHEN NEW.id = %d
		BEGIN SELECT RAISE(ABORT, 'forced failure'); END;`, failID))
	require.NoError(t, err)

	require.Error(t, db.ItemDB.SetStatus(all, core.ForChecking))

	// nothing changed, not even the root
	for _, id := range all {
		item, err := db.ItemDB.GetItem(id)
		require.NoError(t, err)
		require.Equal(t, core.Draft, item.Status())
	}
}

func TestWorklistDeepTree(t *testing.T) {
	db, _ := newTestDB(t)

	// a chain of 80 nested folders; the worklist must not recurse
	rootID, err := db.ItemDB.InsertItem(0, core.Folder, "root", 1, "test")
	require.NoError(t, err)

	var parentID = rootID
	var chain []int
	for i := 0; i < 80; i++ {
		id, err := db.ItemDB.InsertItem(parentID, core.Folder, "folder", 1, "test")
		require.NoError(t, err)
		chain = append(chain, id)
		parentID = id
	}

	ids, err := db.DescendantIDs(rootID)
	require.NoError(t, err)
	require.ElementsMatch(t, chain, ids)

	require.NoError(t, db.ItemDB.SetStatus(append([]int{rootID}, ids...), core.ForChecking))

	leaf, err := db.ItemDB.GetItem(chain[len(chain)-1])
	require.NoError(t, err)
	require.Equal(t, core.ForChecking, leaf.Status())
}

func TestCounts(t *testing.T) {
	db, _ := newTestDB(t)

	rootID, err := db.ItemDB.InsertItem(0, core.Folder, "root", 1, "test")
	require.NoError(t, err)
	subID, err := db.ItemDB.InsertItem(rootID, core.Folder, "sub", 1, "test")
	require.NoError(t, err)
	_, err = db.ItemDB.InsertItem(rootID, core.File, "a.pdf", 1, "test")
	require.NoError(t, err)
	fileID, err := db.ItemDB.InsertItem(subID, core.File, "b.pdf", 1, "test")
	require.NoError(t, err)

	require.NoError(t, db.ItemDB.SetStatus([]int{fileID}, core.ForChecking))

	item, err := db.OpenItem(rootID)
	require.NoError(t, err)

	counts, err := db.Counts(item)
	require.NoError(t, err)
	require.Equal(t, 2, counts.Children)
	require.Equal(t, 3, counts.Descendants)
	require.Equal(t, 2, counts.ByStatus[core.Draft])
	require.Equal(t, 1, counts.ByStatus[core.ForChecking])
}

func TestFilesHaveNoChildren(t *testing.T) {
	db, _ := newTestDB(t)

	fileID, err := db.ItemDB.InsertItem(0, core.File, "a.pdf", 1, "test")
	require.NoError(t, err)

	_, err = db.ItemDB.InsertItem(fileID, core.File, "b.pdf", 1, "test")
	require.Error(t, err)
}
