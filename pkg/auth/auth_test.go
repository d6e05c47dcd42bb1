package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"blog/pkg/storage/memdb"
)

const testSecret = "test-secret"

func newTestService() (*Service, *memdb.Store) {
	db := memdb.New()
	s := New(db, testSecret, time.Hour)
	s.cost = bcrypt.MinCost
	return s, db
}

func TestService_Register(t *testing.T) {
	s, db := newTestService()
	ctx := context.Background()

	token, user, err := s.Register(ctx, "john@example.com", "qwerty", "uploads/john.png")
	if err != nil {
		t.Fatalf("unexpected error registering user: %v", err)
	}

	sub, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if sub != user.ID {
		t.Errorf("want token subject %v, got %v", user.ID, sub)
	}

	stored, err := db.UserByEmail(ctx, "john@example.com")
	if err != nil {
		t.Fatalf("unexpected error retrieving user: %v", err)
	}
	if stored.Password == "qwerty" {
		t.Error("want hashed password, got plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("qwerty")); err != nil {
		t.Errorf("want stored hash to match password, got %v", err)
	}
	if stored.ProfileImage != "uploads/john.png" {
		t.Errorf("want profile image %q, got %q", "uploads/john.png", stored.ProfileImage)
	}

	_, _, err = s.Register(ctx, "john@example.com", "another", "")
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Errorf("want error %v, got %v", ErrDuplicateAccount, err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	s, _ := newTestService()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "qwerty"},
		{name: "blank email", email: "   ", password: "qwerty"},
		{name: "empty password", email: "john@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tt.email, tt.password, "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("want error %v, got %v", ErrValidation, err)
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, user, err := s.Register(ctx, "john@example.com", "qwerty", "")
	if err != nil {
		t.Fatalf("unexpected error registering user: %v", err)
	}

	token, got, err := s.Authenticate(ctx, "John@Example.com", "qwerty")
	if err != nil {
		t.Fatalf("unexpected error authenticating: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("want user %v, got %v", user.ID, got.ID)
	}
	sub, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if sub != user.ID {
		t.Errorf("want token subject %v, got %v", user.ID, sub)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "john@example.com", password: "wrong"},
		{name: "unknown email", email: "nobody@example.com", password: "qwerty"},
		{name: "wrong password again", email: "john@example.com", password: "wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("want error %v, got %v", ErrInvalidCredentials, err)
			}
			if err.Error() != ErrInvalidCredentials.Error() {
				t.Errorf("want message %q, got %q", ErrInvalidCredentials.Error(), err.Error())
			}
		})
	}
}

func TestService_VerifyToken(t *testing.T) {
	s, _ := newTestService()
	userID := primitive.NewObjectID()

	valid, err := s.IssueToken(userID)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	expired := func() string {
		old := New(nil, testSecret, time.Hour)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.IssueToken(userID)
		if err != nil {
			t.Fatalf("unexpected error issuing token: %v", err)
		}
		return token
	}()

	foreign, err := New(nil, "other-secret", time.Hour).IssueToken(userID)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error creating unsigned token: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: valid, wantErr: false},
		{name: "missing token", token: "", wantErr: true},
		{name: "malformed token", token: "not.a.token", wantErr: true},
		{name: "expired token", token: expired, wantErr: true},
		{name: "wrong secret", token: foreign, wantErr: true},
		{name: "unsigned token", token: unsigned, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.VerifyToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("want error %v, got %v", ErrUnauthorized, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != userID {
				t.Errorf("want subject %v, got %v", userID, got)
			}
		})
	}
}

func TestService_TokenPayload(t *testing.T) {
	s, _ := newTestService()
	userID := primitive.NewObjectID()

	token, err := s.IssueToken(userID)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		t.Fatalf("unexpected error decoding token: %v", err)
	}
	if claims.User.ID != userID.Hex() {
		t.Errorf("want user.id %s, got %s", userID.Hex(), claims.User.ID)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != time.Hour {
		t.Errorf("want token lifetime %v, got %v", time.Hour, d)
	}
}

func TestService_User(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, user, err := s.Register(ctx, "john@example.com", "qwerty", "")
	if err != nil {
		t.Fatalf("unexpected error registering user: %v", err)
	}

	got, err := s.User(ctx, user.ID)
	if err != nil {
		t.Fatalf("unexpected error retrieving user: %v", err)
	}
	if got.Email != "john@example.com" {
		t.Errorf("want email %q, got %q", "john@example.com", got.Email)
	}

	_, err = s.User(ctx, primitive.NewObjectID())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("want error %v, got %v", ErrUnauthorized, err)
	}
}
