// Package auth hashes passwords and issues and verifies signed access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"blog/pkg/models"
	"blog/pkg/storage"
)

const DefaultTokenTTL = time.Hour

var (
	ErrDuplicateAccount   = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnauthorized       = fmt.Errorf("token is not valid")
	ErrValidation         = fmt.Errorf("email and password are required")
)

// Users is the part of the storage the credential service depends on.
type Users interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// Claims keeps the payload shape {"user": {"id": ...}} next to the registered subject.
type Claims struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	jwt.RegisteredClaims
}

func New(users Users, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, email, password, profileImage string) (string, models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", models.User{}, ErrValidation
	}

	_, err := s.users.UserByEmail(ctx, email)
	if err == nil {
		return "", models.User{}, ErrDuplicateAccount
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return "", models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		Password:     string(hash),
		ProfileImage: profileImage,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return "", models.User{}, ErrDuplicateAccount
		}
		return "", models.User{}, err
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return "", models.User{}, err
	}

	return token, user, nil
}

// Authenticate checks the credentials and returns a fresh token. An unknown email and a
// wrong password produce the same ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return "", models.User{}, err
	}

	return token, user, nil
}

// User returns the account a verified token belongs to.
func (s *Service) User(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Service) IssueToken(userID primitive.ObjectID) (string, error) {
	now := s.now()

	var claims Claims
	claims.User.ID = userID.Hex()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// VerifyToken checks the signature and expiry of a token and returns its subject.
func (s *Service) VerifyToken(token string) (primitive.ObjectID, error) {
	if token == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid subject", ErrUnauthorized)
	}

	return id, nil
}
