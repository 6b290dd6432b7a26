package core_test

import (
	"testing"

	"github.com/hklemm/dimdocs/core"
	"github.com/stretchr/testify/require"
)

func TestEffectiveAccessResolution(t *testing.T) {
	db, _ := newTestDB(t)
	home := mkDimension(t, db, "quality")
	target := mkDimension(t, db, "safety")
	stranger := mkDimension(t, db, "finance")
	leader := mkActor(core.DimensionLeader, home)

	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: target, AccessLevel: core.AccessView},
	})
	require.NoError(t, err)

	item := openItem(t, db, folderID)

	level, err := db.EffectiveAccess(item, target)
	require.NoError(t, err)
	require.Equal(t, core.AccessView, level)

	level, err = db.EffectiveAccess(item, home)
	require.NoError(t, err)
	require.Equal(t, core.AccessOwner, level)

	level, err = db.EffectiveAccess(item, stranger)
	require.NoError(t, err)
	require.Equal(t, core.AccessDenied, level)
}

func TestSaveGrantsReplacement(t *testing.T) {
	db, _ := newTestDB(t)
	home := mkDimension(t, db, "quality")
	a := mkDimension(t, db, "safety")
	b := mkDimension(t, db, "finance")
	leader := mkActor(core.DimensionLeader, home)

	folderID := mkFolder(t, db, leader, 0, "records")
	item := openItem(t, db, folderID)

	_, err := db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: a, AccessLevel: core.AccessView},
		{ToDimension: b, AccessLevel: core.AccessFull},
	})
	require.NoError(t, err)

	grants, err := db.ListGrants(item)
	require.NoError(t, err)
	require.Len(t, grants, 2)

	// ordered by target dimension name: finance before safety
	require.Equal(t, b, grants[0].ToDimension)
	require.Equal(t, a, grants[1].ToDimension)

	var grantA = grants[1]

	// changed level updates the grant in place, absent target is deleted
	_, err = db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: a, AccessLevel: core.AccessFull},
	})
	require.NoError(t, err)

	grants, err = db.ListGrants(item)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, a, grants[0].ToDimension)
	require.Equal(t, core.AccessFull, grants[0].AccessLevel)
	require.Equal(t, grantA.ID, grants[0].ID)

	// the empty replacement set deletes everything
	_, err = db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{})
	require.NoError(t, err)

	grants, err = db.ListGrants(item)
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestSaveGrantsValidation(t *testing.T) {
	db, _ := newTestDB(t)
	home := mkDimension(t, db, "quality")
	other := mkDimension(t, db, "safety")
	leader := mkActor(core.DimensionLeader, home)

	folderID := mkFolder(t, db, leader, 0, "records")

	// duplicate target dimension
	_, err := db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: other, AccessLevel: core.AccessView},
		{ToDimension: other, AccessLevel: core.AccessFull},
	})
	requireKind(t, err, core.KindValidation)

	// the owner is never a grant target
	_, err = db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: home, AccessLevel: core.AccessView},
	})
	requireKind(t, err, core.KindValidation)

	// unknown dimension
	_, err = db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: 999, AccessLevel: core.AccessView},
	})
	requireKind(t, err, core.KindValidation)

	// unknown access level
	_, err = db.PerformShareSave(leader, "session", folderID, []core.ShareGrant{
		{ToDimension: other, AccessLevel: core.AccessLevel("write")},
	})
	requireKind(t, err, core.KindValidation)
}

// Grants are flat: sharing a folder says nothing about its children.
func TestGrantsDoNotInherit(t *testing.T) {
	db, _ := newTestDB(t)
	home := mkDimension(t, db, "quality")
	other := mkDimension(t, db, "safety")
	leader := mkActor(core.DimensionLeader, home)
	otherLeader := mkActor(core.DimensionLeader, other)

	rootID := mkFolder(t, db, leader, 0, "records")
	childID := mkFolder(t, db, leader, rootID, "2024")

	_, err := db.PerformShareSave(leader, "session", rootID, []core.ShareGrant{
		{ToDimension: other, AccessLevel: core.AccessFull},
	})
	require.NoError(t, err)

	ok, err := db.CanView(otherLeader, openItem(t, db, rootID))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.CanView(otherLeader, openItem(t, db, childID))
	require.NoError(t, err)
	require.False(t, ok)
}
