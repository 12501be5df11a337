// Package accounts is the user directory: username -> User{username, salted
// password digest, encrypted private key bytes, public key bytes}
// (spec.md §3).
package accounts

import (
	"crypto/ecdsa"
	"crypto/sha256"

	uuid "github.com/satori/go.uuid"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
	glog "github.com/driftchain/driftchain/log"
)

var logger = glog.NewModuleLogger(glog.Accounts)

// User is one registered account.
type User struct {
	ID               uuid.UUID // keystore-style identifier, not protocol-visible
	Username         string
	PasswordDigest   [32]byte
	PrivKeyEncrypted []byte // PEM-equivalent opaque blob, see crypto.EncryptPrivateKey
	PubKey           []byte // PEM
}

// Accounts is the mapping username -> User, with a bounded LRU cache over
// public-key lookups (the hot path for Pool.ByAccount / wallet views).
type Accounts struct {
	byUsername map[string]*User
	pubKeyCache common.Cache
}

const pubKeyCacheSize = 4096

func New() *Accounts {
	cache, err := common.NewCache(pubKeyCacheSize)
	if err != nil {
		logger.Error("failed to build pubkey cache, proceeding without it", "err", err)
	}
	return &Accounts{
		byUsername:  make(map[string]*User),
		pubKeyCache: cache,
	}
}

func digest(username, password string) [32]byte {
	return sha256.Sum256([]byte(username + "\x00" + password))
}

// Register creates a new User: generates a keypair, encrypts the private
// key under a password-derived key, and stores the record (spec.md §4.5).
func (a *Accounts) Register(username, password string) (*User, *ecdsa.PrivateKey, error) {
	if _, ok := a.byUsername[username]; ok {
		return nil, nil, ErrDuplicateUser
	}
	sk, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	encSK, err := crypto.EncryptPrivateKey(sk, password)
	if err != nil {
		return nil, nil, err
	}
	u := &User{
		ID:               uuid.NewV4(),
		Username:         username,
		PasswordDigest:   digest(username, password),
		PrivKeyEncrypted: encSK,
		PubKey:           pubPEM,
	}
	a.byUsername[username] = u
	if a.pubKeyCache != nil {
		a.pubKeyCache.Add(username, pubPEM)
	}
	logger.Info("user registered", "username", username)
	return u, sk, nil
}

// Authenticate checks username/password and, on success, decrypts and
// returns the user's private key.
func (a *Accounts) Authenticate(username, password string) (*User, *ecdsa.PrivateKey, error) {
	u, ok := a.byUsername[username]
	if !ok {
		return nil, nil, ErrUnknownUser
	}
	if digest(username, password) != u.PasswordDigest {
		return nil, nil, ErrUnauthorized
	}
	sk, err := crypto.DecryptPrivateKey(u.PrivKeyEncrypted, password)
	if err != nil {
		return nil, nil, err
	}
	return u, sk, nil
}

func (a *Accounts) Get(username string) (*User, bool) {
	u, ok := a.byUsername[username]
	return u, ok
}

// PubKeyOf resolves username's public key through the bounded LRU cache
// before falling back to the full account record (spec.md §2 item 6,
// "Accounts directory... with public-key lookup"), backfilling the cache
// on a miss. This is the hot path callers that only need the key — not
// the whole User — should use instead of Get.
func (a *Accounts) PubKeyOf(username string) ([]byte, bool) {
	if a.pubKeyCache != nil {
		if v, ok := a.pubKeyCache.Get(username); ok {
			return v.([]byte), true
		}
	}
	u, ok := a.byUsername[username]
	if !ok {
		return nil, false
	}
	if a.pubKeyCache != nil {
		a.pubKeyCache.Add(username, u.PubKey)
	}
	return u.PubKey, true
}

// Has reports whether username is already registered, used by the gossip
// inbox's User-object apply rule (spec.md §4.6: "accept if username
// unseen").
func (a *Accounts) Has(username string) bool {
	_, ok := a.byUsername[username]
	return ok
}

// Adopt inserts a User object received over gossip, bypassing
// Register's keypair generation since the remote node already owns it.
func (a *Accounts) Adopt(u *User) error {
	if _, ok := a.byUsername[u.Username]; ok {
		return ErrDuplicateUser
	}
	a.byUsername[u.Username] = u
	if a.pubKeyCache != nil {
		a.pubKeyCache.Add(u.Username, u.PubKey)
	}
	return nil
}

// Usernames lists every known username, used for sync catch-up requests.
func (a *Accounts) Usernames() []string {
	out := make([]string, 0, len(a.byUsername))
	for name := range a.byUsername {
		out = append(out, name)
	}
	return out
}

func (a *Accounts) Len() int { return len(a.byUsername) }

// Export snapshots every User for persistence/gossip catch-up.
func (a *Accounts) Export() []*User {
	out := make([]*User, 0, len(a.byUsername))
	for _, u := range a.byUsername {
		out = append(out, u)
	}
	return out
}

// Import rebuilds an Accounts directory from a snapshot produced by Export.
func Import(users []*User) *Accounts {
	a := New()
	for _, u := range users {
		a.byUsername[u.Username] = u
		if a.pubKeyCache != nil {
			a.pubKeyCache.Add(u.Username, u.PubKey)
		}
	}
	return a
}
