package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLen = 8

// Errors returned by the account service.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrOutletRequired     = errors.New("outletId is required for this role")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailRequired      = errors.New("email is required")
	ErrNameRequired       = errors.New("name is required")
	ErrNotStaff           = errors.New("user is not a staff account")
)

// AccountStore defines the store methods needed to manage accounts.
// Satisfied by store.Store; narrow interface for testability.
type AccountStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	GetStaffUsers(ctx context.Context) ([]model.UserProfile, error)
	GetCustomers(ctx context.Context) ([]model.UserProfile, error)
	GetUser(ctx context.Context, id string) (model.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (model.UserProfile, error)
	SaveUser(ctx context.Context, u model.UserProfile) error
	DeleteUser(ctx context.Context, id string) error
}

// AccountService registers customers, signs users in and manages staff.
type AccountService struct {
	store  AccountStore
	tokens *auth.Tokens
	log    *zap.Logger
	now    func() time.Time
}

func NewAccountService(store AccountStore, tokens *auth.Tokens, log *zap.Logger) *AccountService {
	return &AccountService{store: store, tokens: tokens, log: log, now: time.Now}
}

// Session is a signed-in user with a fresh token pair.
type Session struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         model.UserProfile `json:"user"`
}

// StaffInput is the editable part of a staff account. On update an empty
// Password keeps the current one and a nil IsActive keeps the flag.
type StaffInput struct {
	Name        string
	Email       string
	Phone       string
	Role        string
	OutletID    string
	Permissions model.Permissions
	Password    string
	IsActive    *bool
}

// RegisterCustomer creates a customer account and signs it in.
func (s *AccountService) RegisterCustomer(ctx context.Context, in validate.Registration) (Session, error) {
	if errs := validate.Register(in); !errs.OK() {
		return Session{}, errs
	}
	email := normalizeEmail(in.Email)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("get user by email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.UserProfile{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         enum.RoleCustomer,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.saveUser(ctx, u); err != nil {
		return Session{}, err
	}
	s.log.Info("customer registered", zap.String("user_id", u.ID))
	return s.session(u)
}

// Login checks an email and password. Unknown users, inactive users and
// wrong passwords all fail with ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("get user by email: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// Refresh exchanges a refresh token for a new pair, re-reading the user so
// role and permission changes take effect.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return Session{}, auth.ErrInvalidToken
	}
	return s.session(u)
}

// Profile returns the signed-in user's own account.
func (s *AccountService) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	return u.Redacted(), nil
}

// UpdatePassword replaces a user's password after checking the current one.
func (s *AccountService) UpdatePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.saveUser(ctx, u)
}

// ListStaff returns the staff accounts the actor manages. Outlet-scoped
// actors only see staff of their outlet.
func (s *AccountService) ListStaff(ctx context.Context, actor Actor) ([]model.UserProfile, error) {
	if !actor.Can(enum.PermManageManagers) {
		return nil, ErrForbidden
	}
	users, err := s.store.GetStaffUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	out := make([]model.UserProfile, 0, len(users))
	for _, u := range users {
		if !actor.CanAccessOutlet(enum.OutletScopeAll) && u.OutletID != actor.OutletID {
			continue
		}
		out = append(out, u.Redacted())
	}
	return out, nil
}

// ListCustomers returns every customer account. Super admin only.
func (s *AccountService) ListCustomers(ctx context.Context, actor Actor) ([]model.UserProfile, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.store.GetCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	for i := range users {
		users[i] = users[i].Redacted()
	}
	return users, nil
}

// CreateStaff adds a back-office account within the actor's own scope.
func (s *AccountService) CreateStaff(ctx context.Context, in StaffInput, actor Actor) (model.UserProfile, error) {
	if len(in.Password) < minPasswordLen {
		return model.UserProfile{}, ErrWeakPassword
	}
	u := model.UserProfile{
		ID:        uuid.NewString(),
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.applyStaff(ctx, &u, in, actor); err != nil {
		return model.UserProfile{}, err
	}
	if err := s.saveUser(ctx, u); err != nil {
		return model.UserProfile{}, err
	}
	s.log.Info("staff account created",
		zap.String("user_id", u.ID),
		zap.String("role", u.Role),
		zap.String("created_by", actor.UserID),
	)
	return u.Redacted(), nil
}

// UpdateStaff edits a staff account the actor is allowed to manage.
func (s *AccountService) UpdateStaff(ctx context.Context, id string, in StaffInput, actor Actor) (model.UserProfile, error) {
	u, err := s.manageable(ctx, id, actor)
	if err != nil {
		return model.UserProfile{}, err
	}
	if in.Password != "" && len(in.Password) < minPasswordLen {
		return model.UserProfile{}, ErrWeakPassword
	}
	if err := s.applyStaff(ctx, &u, in, actor); err != nil {
		return model.UserProfile{}, err
	}
	if err := s.saveUser(ctx, u); err != nil {
		return model.UserProfile{}, err
	}
	return u.Redacted(), nil
}

// DeleteStaff removes a staff account the actor is allowed to manage.
func (s *AccountService) DeleteStaff(ctx context.Context, id string, actor Actor) error {
	if id == actor.UserID {
		return ErrForbidden
	}
	if _, err := s.manageable(ctx, id, actor); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *AccountService) manageable(ctx context.Context, id string, actor Actor) (model.UserProfile, error) {
	if !actor.Can(enum.PermManageManagers) {
		return model.UserProfile{}, ErrForbidden
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	if !u.IsStaff() {
		return model.UserProfile{}, ErrNotStaff
	}
	if u.Role == enum.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return model.UserProfile{}, ErrForbidden
	}
	if !actor.CanAccessOutlet(enum.OutletScopeAll) && u.OutletID != actor.OutletID {
		return model.UserProfile{}, ErrForbidden
	}
	return u, nil
}

// applyStaff copies in onto u after checking role and scope rules. An
// actor can never grant more than it holds.
func (s *AccountService) applyStaff(ctx context.Context, u *model.UserProfile, in StaffInput, actor Actor) error {
	if !actor.Can(enum.PermManageManagers) {
		return ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	switch {
	case name == "":
		return ErrNameRequired
	case email == "":
		return ErrEmailRequired
	case !enum.IsStaffRole(in.Role):
		return ErrInvalidRole
	case in.Role == enum.RoleSuperAdmin && !actor.IsSuperAdmin():
		return ErrForbidden
	}

	outletID := in.OutletID
	if in.Role == enum.RoleSuperAdmin {
		outletID = enum.OutletScopeAll
	}
	if outletID == "" {
		return ErrOutletRequired
	}
	if !actor.CanAccessOutlet(outletID) {
		return ErrForbidden
	}
	if outletID != enum.OutletScopeAll {
		if _, err := s.store.GetOutlet(ctx, outletID); err != nil {
			return fmt.Errorf("get outlet: %w", err)
		}
	}

	perms := in.Permissions
	if !actor.IsSuperAdmin() {
		for _, p := range perms.Names() {
			if !actor.Can(p) {
				return ErrForbidden
			}
		}
	}

	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	u.Name = name
	u.Email = email
	u.Phone = strings.TrimSpace(in.Phone)
	u.Role = in.Role
	u.OutletID = outletID
	u.Permissions = &perms
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	return nil
}

func (s *AccountService) saveUser(ctx context.Context, u model.UserProfile) error {
	if err := s.store.SaveUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrEmailTaken
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *AccountService) session(u model.UserProfile) (Session, error) {
	var perms []string
	if u.Permissions != nil {
		perms = u.Permissions.Names()
	}
	access, err := s.tokens.GenerateToken(auth.Subject{
		UserID:      u.ID,
		OutletID:    u.OutletID,
		Role:        u.Role,
		Permissions: perms,
	})
	if err != nil {
		return Session{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return Session{AccessToken: access, RefreshToken: refresh, User: u.Redacted()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
