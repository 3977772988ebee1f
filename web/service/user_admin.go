package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/util/crypto"
	"github.com/ytschitwan/portal/web/entity"
	"gorm.io/gorm"
)

// UserAdminService backs the admin user list and the CLI account commands.
// Role changes are not reachable from the HTTP API.
type UserAdminService struct {
	db *gorm.DB
}

func NewUserAdminService(db *gorm.DB) *UserAdminService {
	return &UserAdminService{db: db}
}

func (s *UserAdminService) ListUsers(ctx context.Context, page entity.PageRequest) ([]model.User, entity.Pagination, error) {
	page = page.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("count users", err)
	}
	users := make([]model.User, 0)
	if err := db.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("list users", err)
	}
	return users, entity.NewPagination(page, total), nil
}

func (s *UserAdminService) GetUser(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

// EnsureAdmin creates an admin account, or promotes and resets the password of
// an existing account with the same email. It returns true when a new account was created.
func (s *UserAdminService) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, bool, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := requireFields(field{"email", email}, field{"password", password}); err != nil {
		return nil, false, err
	}
	if !validEmail(email) {
		return nil, false, ErrInvalidEmail
	}
	if name == "" {
		name = "Administrator"
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return nil, false, invalid("%s", err.Error())
		}
		return nil, false, err
	}

	db := s.db.WithContext(ctx)
	var u model.User
	err = db.Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		u.Role = model.RoleAdmin
		u.PasswordHash = hash
		if err := db.Model(&u).Updates(map[string]any{"role": u.Role, "password_hash": hash}).Error; err != nil {
			return nil, false, storeErr("promote user", err)
		}
		logger.Noticef("user %s promoted to admin", email)
		return &u, false, nil
	case database.IsNotFound(err):
		u = model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleAdmin}
		if err := db.Create(&u).Error; err != nil {
			return nil, false, storeErr("create admin", err)
		}
		logger.Noticef("admin %s created", email)
		return &u, true, nil
	default:
		return nil, false, storeErr("find user", err)
	}
}

// CountAdmins is used at startup to warn when nobody can sign in to the back office.
func (s *UserAdminService) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&n).Error
	return n, err
}
