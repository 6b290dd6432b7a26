package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/hklemm/dimdocs/core"
	"github.com/stretchr/testify/require"
)

func TestLockRoundTrip(t *testing.T) {
	db, now := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformLock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)

	item := openItem(t, db, folderID)
	require.True(t, item.IsLocked())

	inert, err := db.IsInertByLock(item, "session-a")
	require.NoError(t, err)
	require.True(t, inert)

	result, err := db.PerformUnlock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	// still locked, but the session holds a token now
	item = openItem(t, db, folderID)
	require.True(t, item.IsLocked())

	inert, err = db.IsInertByLock(item, "session-a")
	require.NoError(t, err)
	require.False(t, inert)

	ok, err := db.VerifyToken(item, result.Token)
	require.NoError(t, err)
	require.True(t, ok)

	// another session holds no token
	inert, err = db.IsInertByLock(item, "session-b")
	require.NoError(t, err)
	require.True(t, inert)

	// the token expires after an hour
	*now = now.Add(core.TokenLifetime + time.Second)

	ok, err = db.VerifyToken(item, result.Token)
	require.NoError(t, err)
	require.False(t, ok)

	inert, err = db.IsInertByLock(item, "session-a")
	require.NoError(t, err)
	require.True(t, inert)
}

func TestLockValidation(t *testing.T) {
	db, _ := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	for _, pin := range []string{"", "12345", "1234567", "abcdef", "12345x"} {
		_, err := db.PerformLock(leader, "session", folderID, pin)
		requireKind(t, err, core.KindValidation)
	}

	_, err := db.PerformLock(leader, "session", folderID, "123456")
	require.NoError(t, err)

	_, err = db.PerformLock(leader, "session", folderID, "654321")
	requireKind(t, err, core.KindConflict)

	// unlocking an unlocked item is a validation error
	otherID := mkFolder(t, db, leader, 0, "reports")
	_, err = db.PerformUnlock(leader, "session", otherID, "123456")
	requireKind(t, err, core.KindValidation)
}

func TestUnlockRateLimit(t *testing.T) {
	db, now := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformLock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := db.PerformUnlock(leader, "session-a", folderID, "000000")
		requireKind(t, err, core.KindPermissionDenied)
	}

	// the 6th attempt fails even with the correct pin
	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	requireKind(t, err, core.KindRateLimited)

	// other sessions are not throttled
	_, err = db.PerformUnlock(leader, "session-b", folderID, "123456")
	require.NoError(t, err)

	// the window passes, the counter restarts
	*now = now.Add(core.DefaultAttemptWindow + time.Second)
	result, err := db.PerformUnlock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
}

// Concurrent failed attempts from one session must all count; the single
// upsert statement in the attempt store makes the increment atomic.
func TestConcurrentFailedUnlocks(t *testing.T) {
	db, _ := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformLock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var errs = make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.PerformUnlock(leader, "session-a", folderID, "000000")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.Error(t, err)
		require.Equal(t, core.KindPermissionDenied, core.KindOf(err))
	}

	// all 5 failures counted, so even the correct pin is throttled
	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	requireKind(t, err, core.KindRateLimited)
}

func TestResetPin(t *testing.T) {
	db, _ := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	admin := mkActor(core.Admin, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformLock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)

	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)
	_, err = db.PerformUnlock(leader, "session-b", folderID, "123456")
	require.NoError(t, err)

	// leaders may not reset pins
	_, err = db.PerformResetPin(leader, folderID, "999999")
	requireKind(t, err, core.KindPermissionDenied)

	report, err := db.PerformResetPin(admin, folderID, "999999")
	require.NoError(t, err)
	require.Equal(t, 2, report.TokensRevoked)
	require.Equal(t, folderID, report.ItemID)

	// every session has to re-authenticate with the new pin
	item := openItem(t, db, folderID)
	for _, session := range []string{"session-a", "session-b"} {
		inert, err := db.IsInertByLock(item, session)
		require.NoError(t, err)
		require.True(t, inert)
	}

	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	requireKind(t, err, core.KindPermissionDenied)

	_, err = db.PerformUnlock(leader, "session-a", folderID, "999999")
	require.NoError(t, err)
}

// resetPin is the unconditional override of the throttle.
func TestResetPinClearsAttempts(t *testing.T) {
	db, _ := newTestDB(t)
	dim := mkDimension(t, db, "quality")
	leader := mkActor(core.DimensionLeader, dim)
	admin := mkActor(core.Admin, dim)
	folderID := mkFolder(t, db, leader, 0, "records")

	_, err := db.PerformLock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := db.PerformUnlock(leader, "session-a", folderID, "000000")
		requireKind(t, err, core.KindPermissionDenied)
	}
	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	requireKind(t, err, core.KindRateLimited)

	_, err = db.PerformResetPin(admin, folderID, "123456")
	require.NoError(t, err)

	_, err = db.PerformUnlock(leader, "session-a", folderID, "123456")
	require.NoError(t, err)
}
