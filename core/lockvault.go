package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hklemm/dimdocs/util"
	"golang.org/x/crypto/bcrypt"
)

const (
	pinLength    = 6
	attemptLimit = 5

	// DefaultAttemptWindow is the cool-down window of the unlock throttle.
	// A session that fails 5 times within the window is rejected until the
	// window has passed or an admin resets the PIN.
	DefaultAttemptWindow = 15 * time.Minute

	// TokenLifetime is how long an unlock token stays valid.
	TokenLifetime = time.Hour
)

// An UnlockToken proves a successful PIN verification for one session. Only
// the salted hash of the token is stored.
type UnlockToken struct {
	ItemID    int
	SessionID string
	Salt      string
	TokenHash string
	TsIssued  int64
	TsExpires int64
}

type LockDB interface {
	PinHash(itemID int) (string, error)
	SetPinHash(itemID int, pinHash string) error
	InsertToken(t UnlockToken) error
	Tokens(itemID int) ([]UnlockToken, error)
	SessionTokens(itemID int, sessionID string) ([]UnlockToken, error)
	DeleteTokens(itemID int) (int, error)
	DeleteExpiredTokens(itemID int, now int64) error
	// IncrementAttempts counts a failed unlock. The increment is atomic, and
	// a failure outside the current window restarts the counter.
	IncrementAttempts(itemID int, sessionID string, now int64, window int64) (int, error)
	Attempts(itemID int, sessionID string, now int64, window int64) (int, error)
	ResetAttempts(itemID int, sessionID string) error
	DeleteAttempts(itemID int) error
}

func validPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hashToken(salt, token string) string {
	var sum = sha256.Sum256([]byte(token + salt))
	return hex.EncodeToString(sum[:])
}

// Lock locks an item with a PIN. The PIN is stored as a bcrypt hash, never
// as plaintext.
func (c *CoreDB) Lock(item *Item, pin string) error {

	if !validPIN(pin) {
		return Errorf(KindValidation, "pin must be exactly %d digits", pinLength)
	}
	if item.IsLocked() {
		return Errorf(KindConflict, "item %d is already locked", item.ID())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return c.ItemDB.SetLocked(item.DBItem, true, string(hash))
}

// Unlock verifies the PIN and issues an unlock token for the session. The
// item stays locked; the token is what exempts the session from the lock.
// After 5 failed attempts within the window the session is rejected
// regardless of PIN correctness.
func (c *CoreDB) Unlock(item *Item, pin string, sessionID string) (string, error) {

	if !item.IsLocked() {
		return "", Errorf(KindValidation, "item %d is not locked", item.ID())
	}

	var now = c.now().Unix()
	var window = int64(c.attemptWindow().Seconds())

	count, err := c.LockDB.Attempts(item.ID(), sessionID, now, window)
	if err != nil {
		return "", err
	}
	if count >= attemptLimit {
		return "", Errorf(KindRateLimited, "item %d: unlock attempts exhausted", item.ID())
	}

	pinHash, err := c.LockDB.PinHash(item.ID())
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)) != nil {
		if _, err := c.LockDB.IncrementAttempts(item.ID(), sessionID, now, window); err != nil {
			return "", err
		}
		return "", Errorf(KindPermissionDenied, "item %d: wrong pin", item.ID())
	}

	token, err := util.RandomString32()
	if err != nil {
		return "", err
	}
	salt, err := util.RandomString32()
	if err != nil {
		return "", err
	}

	err = c.LockDB.InsertToken(UnlockToken{
		ItemID:    item.ID(),
		SessionID: sessionID,
		Salt:      salt,
		TokenHash: hashToken(salt, token),
		TsIssued:  now,
		TsExpires: now + int64(TokenLifetime.Seconds()),
	})
	if err != nil {
		return "", err
	}

	if err := c.LockDB.ResetAttempts(item.ID(), sessionID); err != nil {
		return "", err
	}

	return token, nil
}

// VerifyToken reports whether token is a valid unlock token for the item.
// Expired tokens count as absent.
func (c *CoreDB) VerifyToken(item *Item, token string) (bool, error) {

	tokens, err := c.LockDB.Tokens(item.ID())
	if err != nil {
		return false, err
	}

	var now = c.now().Unix()
	for _, t := range tokens {
		if now >= t.TsExpires {
			continue
		}
		if hashToken(t.Salt, token) == t.TokenHash {
			return true, nil
		}
	}
	return false, nil
}

// A PinResetReport is returned by ResetPin so the caller can record the
// audit trail. The engine does not log it itself.
type PinResetReport struct {
	ItemID        int   `json:"itemId"`
	Actor         Actor `json:"actor"`
	TokensRevoked int   `json:"tokensRevoked"`
	WasLocked     bool  `json:"wasLocked"`
	TsReset       int64 `json:"tsReset"`
}

// ResetPin overwrites an item's PIN, deletes every outstanding unlock token
// (forcing all currently-unlocked sessions to re-authenticate) and clears the
// attempt counters of all sessions. Admin tier only.
func (c *CoreDB) ResetPin(item *Item, newPin string, actor Actor) (*PinResetReport, error) {

	if !actor.Role.AdminTier() {
		return nil, Errorf(KindPermissionDenied, "resetting a pin requires the admin tier")
	}
	if !validPIN(newPin) {
		return nil, Errorf(KindValidation, "pin must be exactly %d digits", pinLength)
	}
	if !item.IsLocked() {
		return nil, Errorf(KindValidation, "item %d is not locked", item.ID())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPin), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if err := c.LockDB.SetPinHash(item.ID(), string(hash)); err != nil {
		return nil, err
	}

	revoked, err := c.LockDB.DeleteTokens(item.ID())
	if err != nil {
		return nil, err
	}

	if err := c.LockDB.DeleteAttempts(item.ID()); err != nil {
		return nil, err
	}

	return &PinResetReport{
		ItemID:        item.ID(),
		Actor:         actor,
		TokensRevoked: revoked,
		WasLocked:     true,
		TsReset:       c.now().Unix(),
	}, nil
}

// IsInertByLock reports whether the item's PIN lock applies to the session,
// which is the case when the item is locked and the session holds no valid
// unlock token.
func (c *CoreDB) IsInertByLock(item *Item, sessionID string) (bool, error) {

	if !item.IsLocked() {
		return false, nil
	}

	var now = c.now().Unix()

	// lazy eviction, no background sweep
	if err := c.LockDB.DeleteExpiredTokens(item.ID(), now); err != nil {
		return false, err
	}

	tokens, err := c.LockDB.SessionTokens(item.ID(), sessionID)
	if err != nil {
		return false, err
	}
	for _, t := range tokens {
		if now < t.TsExpires {
			return false, nil
		}
	}
	return true, nil
}
