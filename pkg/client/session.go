package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoSession = errors.New("not signed in")

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

// Session is the signed-in state passed to every authenticated call.
type Session struct {
	User  User
	Token string
}

func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// TokenStore persists the token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file readable only by its owner.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load returns an empty token when nothing has been saved.
func (f *FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(token), 0o600)
}

func (f *FileTokenStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Signup creates an account and returns a hydrated session for it.
func (c *Client) Signup(ctx context.Context, email, password string, profileImage *Upload) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, &ValidationError{Fields: missing(map[string]string{"email": email, "password": password})}
	}

	body, ct, err := multipartBody(map[string]string{"email": email, "password": password}, "profileImage", profileImage)
	if err != nil {
		return Session{}, err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", body, ct, &resp); err != nil {
		return Session{}, err
	}

	return c.LoadUser(ctx, resp.Token)
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, &ValidationError{Fields: missing(map[string]string{"email": email, "password": password})}
	}

	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return Session{}, err
	}

	return Session{User: resp.User, Token: resp.Token}, nil
}

// LoadUser validates token against the server and returns the session it belongs to.
func (c *Client) LoadUser(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", token, nil, "", &user); err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

// Restore hydrates a session from a persisted token. A token the server no longer
// accepts is cleared from the store and ErrNoSession is returned.
func (c *Client) Restore(ctx context.Context, store TokenStore) (Session, error) {
	token, err := store.Load()
	if err != nil {
		return Session{}, fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return Session{}, ErrNoSession
	}

	s, err := c.LoadUser(ctx, token)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			if err := store.Clear(); err != nil {
				return Session{}, fmt.Errorf("failed to clear token: %w", err)
			}
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	return s, nil
}

// Remember persists the session token.
func Remember(store TokenStore, s Session) error {
	if !s.LoggedIn() {
		return ErrNoSession
	}
	return store.Save(s.Token)
}

// Logout forgets the persisted token. The returned session is empty.
func Logout(store TokenStore) (Session, error) {
	return Session{}, store.Clear()
}
