package comet

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const NickCookieName = "chaton-nickname"

var (
	// far future
	RememberExpiry = time.Date(2038, time.January, 19, 0, 0, 0, 0, time.UTC)
	// in the past, which deletes the cookie
	ForgetExpiry = time.Date(1970, time.January, 1, 0, 0, 1, 0, time.UTC)
)

// remembers the nickname between sessions.
// the nick is kept as a single cookie scoped to `cookiePath`, serialized as a Set-Cookie line
// in a pebble database. an expired cookie reads as absent.
type NickStore struct {
	stateLock sync.Mutex
	db        *pebble.DB

	cookiePath string
	now        func() time.Time

	log LogFunction
}

// `dir` empty keeps the store in memory for this process only
func OpenNickStore(dir string, cookiePath string) (*NickStore, error) {
	var db *pebble.DB
	var err error
	if dir == "" {
		db, err = pebble.Open("nick", &pebble.Options{
			FS: vfs.NewMem(),
		})
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		db, err = pebble.Open(filepath.Clean(dir), &pebble.Options{})
	}
	if err != nil {
		return nil, fmt.Errorf("open nick store: %w", err)
	}
	if cookiePath == "" {
		cookiePath = "/"
	}
	return &NickStore{
		db:         db,
		cookiePath: cookiePath,
		now:        time.Now,
		log:        LogFn(LogLevelDebug, "[n]"),
	}, nil
}

func (self *NickStore) key() []byte {
	return []byte(fmt.Sprintf("cookie:%s:%s", self.cookiePath, NickCookieName))
}

func (self *NickStore) Remember(nick string) error {
	return self.set(&http.Cookie{
		Name:    NickCookieName,
		Value:   url.QueryEscape(nick),
		Path:    self.cookiePath,
		Expires: RememberExpiry,
	})
}

func (self *NickStore) Forget() error {
	return self.set(&http.Cookie{
		Name:    NickCookieName,
		Value:   "",
		Path:    self.cookiePath,
		Expires: ForgetExpiry,
	})
}

func (self *NickStore) set(cookie *http.Cookie) error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.db == nil {
		return ErrNickStoreClosed
	}
	self.log("set %s", cookie)
	return self.db.Set(self.key(), []byte(cookie.String()), pebble.Sync)
}

// returns the remembered nick, or false if none is remembered or it expired
func (self *NickStore) Load() (string, bool, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.db == nil {
		return "", false, ErrNickStoreClosed
	}

	value, closer, err := self.db.Get(self.key())
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	setCookie := string(value)
	closer.Close()

	cookie, err := http.ParseSetCookie(setCookie)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if !cookie.Expires.IsZero() && !self.now().Before(cookie.Expires) {
		return "", false, nil
	}
	nick, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nick, true, nil
}

func (self *NickStore) Close() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.db == nil {
		return nil
	}
	err := self.db.Close()
	self.db = nil
	return err
}
