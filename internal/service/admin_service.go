package service

import (
	"context"
	"log"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
)

type ReportSource interface {
	OrderCountByStatus(ctx context.Context) ([]model.OrderCountByStatus, error)
	CollectionByStaff(ctx context.Context) ([]model.PaymentCollection, error)
	OrderCountByProcessor(ctx context.Context) ([]model.OrderCountByProcessor, error)
}

type UserAdmin interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	ListStaff(ctx context.Context) ([]model.User, error)
	ChangeRole(ctx context.Context, id uint64, role model.Role) error
}

type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AdminService backs the manager screens.
type AdminService struct {
	Settings SettingStore
	Reports  ReportSource
	Users    UserAdmin
	Tokens   TokenRevoker
}

func NewAdminService(settings SettingStore, reports ReportSource, users UserAdmin, tokens TokenRevoker) *AdminService {
	return &AdminService{Settings: settings, Reports: reports, Users: users, Tokens: tokens}
}

// SetOrderCreation switches order creation on or off.
func (s *AdminService) SetOrderCreation(ctx context.Context, actor model.User, on bool) (model.Setting, error) {
	if err := allowed(actor, model.ActionManageSettings); err != nil {
		return model.Setting{}, err
	}
	v := "0"
	if on {
		v = "1"
	}
	if err := s.Settings.Put(ctx, model.SettingAllowOrderCreation, v); err != nil {
		return model.Setting{}, err
	}
	log.Printf("setting %s=%s by user %d", model.SettingAllowOrderCreation, v, actor.ID)
	return model.Setting{Name: model.SettingAllowOrderCreation, Value: v}, nil
}

func (s *AdminService) GetSetting(ctx context.Context, actor model.User, name string) (model.Setting, error) {
	if err := allowed(actor, model.ActionManageSettings); err != nil {
		return model.Setting{}, err
	}
	return s.Settings.Get(ctx, name, "1")
}

func (s *AdminService) OrdersByStatus(ctx context.Context, actor model.User) ([]model.OrderCountByStatus, error) {
	if err := allowed(actor, model.ActionViewReports); err != nil {
		return nil, err
	}
	return s.Reports.OrderCountByStatus(ctx)
}

func (s *AdminService) CollectionByStaff(ctx context.Context, actor model.User) ([]model.PaymentCollection, error) {
	if err := allowed(actor, model.ActionViewReports); err != nil {
		return nil, err
	}
	return s.Reports.CollectionByStaff(ctx)
}

func (s *AdminService) OrdersByProcessor(ctx context.Context, actor model.User) ([]model.OrderCountByProcessor, error) {
	if err := allowed(actor, model.ActionViewReports); err != nil {
		return nil, err
	}
	return s.Reports.OrderCountByProcessor(ctx)
}

func (s *AdminService) ListStaff(ctx context.Context, actor model.User) ([]model.User, error) {
	if err := allowed(actor, model.ActionManageStaff); err != nil {
		return nil, err
	}
	return s.Users.ListStaff(ctx)
}

// FindUser looks a user up by email so a manager can promote them.
func (s *AdminService) FindUser(ctx context.Context, actor model.User, email string) (model.User, error) {
	if err := allowed(actor, model.ActionManageStaff); err != nil {
		return model.User{}, err
	}
	return s.Users.GetByEmail(ctx, repository.NormalizeEmail(email))
}

// ChangeRole assigns a new role.  Managers cannot change their own role,
// and the user's refresh tokens are revoked so new sessions carry the new
// role.
func (s *AdminService) ChangeRole(ctx context.Context, actor model.User, userID uint64, role model.Role) (model.User, error) {
	if err := allowed(actor, model.ActionManageStaff); err != nil {
		return model.User{}, err
	}
	if userID == actor.ID {
		return model.User{}, ErrNotAllowed
	}
	if role == model.RoleAnonymous || role > model.RoleManager {
		return model.User{}, ErrInvalidRole
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if u.Role == role {
		return u, nil
	}
	if err := s.Users.ChangeRole(ctx, userID, role); err != nil {
		return model.User{}, err
	}
	if s.Tokens != nil {
		if err := s.Tokens.RevokeAllForUser(ctx, userID); err != nil {
			log.Printf("user %d: revoke tokens after role change failed: %v", userID, err)
		}
	}
	log.Printf("user %d role %s -> %s by manager %d", userID, u.Role, role, actor.ID)
	u.Role = role
	return u, nil
}
