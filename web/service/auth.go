package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/util/crypto"
	"gorm.io/gorm"
)

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserId int        `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// Claims are the JWT claims issued at login. Subject carries the user id; Role
// is informational only, Verify always reads the role from the user record.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register creates a self-service account. The role is always "user".
func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, *model.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := requireFields(field{"name", name}, field{"email", email}, field{"password", password}); err != nil {
		return "", nil, err
	}
	if !validEmail(email) {
		return "", nil, ErrInvalidEmail
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return "", nil, invalid("%s", err.Error())
		}
		return "", nil, err
	}

	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleUser}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicate(err) {
			return "", nil, ErrEmailTaken
		}
		return "", nil, storeErr("create user", err)
	}

	tok, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// Login checks the credentials and returns a signed token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = NormalizeEmail(email)
	if err := requireFields(field{"email", email}, field{"password", password}); err != nil {
		return "", nil, err
	}

	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if database.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeErr("find user", err)
	}
	if !crypto.CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	tok, err := s.IssueToken(&u)
	if err != nil {
		return "", nil, err
	}
	return tok, &u, nil
}

func (s *AuthService) IssueToken(u *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.Id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates the token signature and expiry and resolves its subject to
// a user. It has no side effects.
func (s *AuthService) Verify(ctx context.Context, token string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUnknownSubject
		}
		return nil, storeErr("resolve token subject", err)
	}
	return &Identity{UserId: u.Id, Name: u.Name, Email: u.Email, Role: u.Role}, nil
}

// RequireRole is the single capability check used by every admin route.
func RequireRole(id *Identity, role model.Role) error {
	if id == nil {
		return ErrInvalidToken
	}
	if id.Role != role {
		return ErrForbidden
	}
	return nil
}
