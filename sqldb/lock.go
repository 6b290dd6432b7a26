package sqldb

import (
	"database/sql"

	"github.com/hklemm/dimdocs/core"
)

type LockDB struct {
	*sql.DB
	pinHash        *sql.Stmt
	setPinHash     *sql.Stmt
	insertToken    *sql.Stmt
	tokens         *sql.Stmt
	sessionTokens  *sql.Stmt
	deleteTokens   *sql.Stmt
	deleteExpired  *sql.Stmt
	getAttempts    *sql.Stmt
	upsertAttempts *sql.Stmt
	resetAttempts  *sql.Stmt
	deleteAttempts *sql.Stmt
}

func NewLockDB(db *sql.DB) *LockDB {

	db.Exec(`
		CREATE TABLE IF NOT EXISTS unlock_token (
			itemId int(11) NOT NULL,
			sessionId varchar(64) NOT NULL,
			salt varchar(32) NOT NULL,
			tokenHash varchar(64) NOT NULL,
			tsIssued INTEGER NOT NULL,
			tsExpires INTEGER NOT NULL,
			PRIMARY KEY (itemId, sessionId, tokenHash)
		);`)
	db.Exec(`
		CREATE TABLE IF NOT EXISTS lock_attempt (
			itemId int(11) NOT NULL,
			sessionId varchar(64) NOT NULL,
			count int(11) NOT NULL,
			windowStart INTEGER NOT NULL,
			PRIMARY KEY (itemId, sessionId)
		);`)

	var lockDB = &LockDB{}
	lockDB.DB = db
	lockDB.pinHash = mustPrepare(db, "SELECT pinHash FROM item WHERE id = ? LIMIT 1")
	lockDB.setPinHash = mustPrepare(db, "UPDATE item SET pinHash = ? WHERE id = ?")
	lockDB.insertToken = mustPrepare(db, "INSERT INTO unlock_token (itemId, sessionId, salt, tokenHash, tsIssued, tsExpires) VALUES (?, ?, ?, ?, ?, ?)")
	lockDB.tokens = mustPrepare(db, "SELECT itemId, sessionId, salt, tokenHash, tsIssued, tsExpires FROM unlock_token WHERE itemId = ?")
	lockDB.sessionTokens = mustPrepare(db, "SELECT itemId, sessionId, salt, tokenHash, tsIssued, tsExpires FROM unlock_token WHERE itemId = ? AND sessionId = ?")
	lockDB.deleteTokens = mustPrepare(db, "DELETE FROM unlock_token WHERE itemId = ?")
	lockDB.deleteExpired = mustPrepare(db, "DELETE FROM unlock_token WHERE itemId = ? AND tsExpires <= ?")
	lockDB.getAttempts = mustPrepare(db, "SELECT count, windowStart FROM lock_attempt WHERE itemId = ? AND sessionId = ? LIMIT 1")
	// restarts the window when the previous one has passed, else increments
	lockDB.upsertAttempts = mustPrepare(db, `
		INSERT INTO lock_attempt (itemId, sessionId, count, windowStart) VALUES (?, ?, 1, ?)
		ON CONFLICT(itemId, sessionId) DO UPDATE SET
			count = CASE WHEN windowStart <= ? THEN 1 ELSE count + 1 END,
			windowStart = CASE WHEN windowStart <= ? THEN excluded.windowStart ELSE windowStart END`)
	lockDB.resetAttempts = mustPrepare(db, "DELETE FROM lock_attempt WHERE itemId = ? AND sessionId = ?")
	lockDB.deleteAttempts = mustPrepare(db, "DELETE FROM lock_attempt WHERE itemId = ?")
	return lockDB
}

func (db *LockDB) PinHash(itemID int) (string, error) {
	var hash string
	return hash, db.pinHash.QueryRow(itemID).Scan(&hash)
}

func (db *LockDB) SetPinHash(itemID int, pinHash string) error {
	_, err := db.setPinHash.Exec(pinHash, itemID)
	return err
}

func (db *LockDB) InsertToken(t core.UnlockToken) error {
	_, err := db.insertToken.Exec(t.ItemID, t.SessionID, t.Salt, t.TokenHash, t.TsIssued, t.TsExpires)
	return err
}

func (db *LockDB) scanTokens(stmt *sql.Stmt, args ...interface{}) ([]core.UnlockToken, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens = []core.UnlockToken{}
	for rows.Next() {
		var t core.UnlockToken
		if err = rows.Scan(&t.ItemID, &t.SessionID, &t.Salt, &t.TokenHash, &t.TsIssued, &t.TsExpires); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (db *LockDB) Tokens(itemID int) ([]core.UnlockToken, error) {
	return db.scanTokens(db.tokens, itemID)
}

func (db *LockDB) SessionTokens(itemID int, sessionID string) ([]core.UnlockToken, error) {
	return db.scanTokens(db.sessionTokens, itemID, sessionID)
}

func (db *LockDB) DeleteTokens(itemID int) (int, error) {
	res, err := db.deleteTokens.Exec(itemID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (db *LockDB) DeleteExpiredTokens(itemID int, now int64) error {
	_, err := db.deleteExpired.Exec(itemID, now)
	return err
}

// IncrementAttempts counts one failed unlock attempt. The upsert is a single
// statement, so two concurrent failures from the same session both count.
func (db *LockDB) IncrementAttempts(itemID int, sessionID string, now int64, window int64) (int, error) {

	var windowEnd = now - window

	_, err := db.upsertAttempts.Exec(itemID, sessionID, now, windowEnd, windowEnd)
	if err != nil {
		return 0, err
	}

	return db.Attempts(itemID, sessionID, now, window)
}

func (db *LockDB) Attempts(itemID int, sessionID string, now int64, window int64) (int, error) {

	var count int
	var windowStart int64

	err := db.getAttempts.QueryRow(itemID, sessionID).Scan(&count, &windowStart)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if windowStart <= now-window {
		return 0, nil // window has passed
	}
	return count, nil
}

func (db *LockDB) ResetAttempts(itemID int, sessionID string) error {
	_, err := db.resetAttempts.Exec(itemID, sessionID)
	return err
}

func (db *LockDB) DeleteAttempts(itemID int) error {
	_, err := db.deleteAttempts.Exec(itemID)
	return err
}
