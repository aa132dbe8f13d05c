package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/logctx"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrPasswordNotSet  = errors.New("password not set for this account")
	ErrDuplicateUser   = errors.New("username or email already taken")
	ErrAccountInactive = errors.New("account is deactivated")
)

type Service struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.SugaredLogger
	tokens *TokenIssuer
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, tokens *TokenIssuer) *Service {
	return &Service{cfg: cfg, db: db, log: log, tokens: tokens}
}

// RegisterRequest is public member self-registration.
type RegisterRequest struct {
	Username    string   `json:"username" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Phone       *string  `json:"phone"`
	Gender      *string  `json:"gender"`
	Age         *int     `json:"age"`
	HeightCM    *float64 `json:"height_cm"`
	WeightKG    *float64 `json:"weight_kg"`
	FitnessGoal *string  `json:"fitness_goal"`
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{
		ID:           tool.GenerateUUIDV7(),
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         types.RoleMember,
		Phone:        req.Phone,
		Gender:       req.Gender,
		Age:          req.Age,
		HeightCM:     req.HeightCM,
		WeightKG:     req.WeightKG,
		FitnessGoal:  req.FitnessGoal,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("member registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// AuthResult is the login response payload.
type AuthResult struct {
	Token           string       `json:"token"`
	User            *models.User `json:"user"`
	MustSetPassword bool         `json:"must_set_password"`
}

// Authenticate checks credentials and issues a bearer token. Accounts
// created by an admin without a password must set one first.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", strings.ToLower(username), strings.ToLower(username)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	if u.MustSetPassword || u.PasswordHash == "" {
		return nil, ErrPasswordNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, User: &u}, nil
}

// SetInitialPassword completes an admin-created account. Only valid while
// must_set_password is still on.
func (s *Service) SetInitialPassword(ctx context.Context, username, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	var u models.User
	err := s.db.WithContext(ctx).
		Where("(username = ? OR email = ?) AND must_set_password = ?", strings.ToLower(username), strings.ToLower(username), true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no account awaiting a password for %q", username)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&u).Updates(map[string]any{
		"password_hash":     string(hash),
		"must_set_password": false,
	}).Error; err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("initial password set", "user_id", u.ID)
	return nil
}

// CreateUserRequest is admin account creation for members and trainers.
// Accounts start without a password and must set one on first login.
type CreateUserRequest struct {
	Username  string     `json:"username" binding:"required"`
	Email     string     `json:"email" binding:"required,email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      types.Role `json:"role" binding:"required"`
	Phone     *string    `json:"phone"`
	Gender    *string    `json:"gender"`

	Specialization  *string `json:"specialization"`
	ExperienceYears *int    `json:"experience_years"`
	ExperienceLevel int     `json:"experience_level"`

	Age         *int     `json:"age"`
	HeightCM    *float64 `json:"height_cm"`
	WeightKG    *float64 `json:"weight_kg"`
	FitnessGoal *string  `json:"fitness_goal"`
}

func (s *Service) AdminCreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if req.Role != types.RoleMember && req.Role != types.RoleTrainer {
		return nil, fmt.Errorf("role must be member or trainer")
	}
	u := &models.User{
		ID:              tool.GenerateUUIDV7(),
		Username:        strings.ToLower(strings.TrimSpace(req.Username)),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            req.Role,
		Phone:           req.Phone,
		Gender:          req.Gender,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
		ExperienceLevel: req.ExperienceLevel,
		Age:             req.Age,
		HeightCM:        req.HeightCM,
		WeightKG:        req.WeightKG,
		FitnessGoal:     req.FitnessGoal,
		MustSetPassword: true,
		IsActive:        true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("user created by admin", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// AdminUpdateUser applies a partial field update to a member or trainer.
func (s *Service) AdminUpdateUser(ctx context.Context, userID string, fields map[string]any) (*models.User, error) {
	allowed := map[string]bool{
		"first_name": true, "last_name": true, "email": true, "phone": true,
		"gender": true, "specialization": true, "experience_years": true,
		"experience_level": true, "age": true, "height_cm": true,
		"weight_kg": true, "fitness_goal": true, "is_active": true,
	}
	updates := make(map[string]any, len(fields))
	for k, v := range fields {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no updatable fields provided")
	}
	var u models.User
	if err := s.db.WithContext(ctx).
		Where("id = ? AND role IN ?", userID, []types.Role{types.RoleMember, types.RoleTrainer}).
		First(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&u).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

// AdminDeactivateUser soft-deletes an account. History stays queryable.
func (s *Service) AdminDeactivateUser(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role IN ?", userID, []types.Role{types.RoleMember, types.RoleTrainer}).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no member or trainer with id %s", userID)
	}
	logctx.FromCtx(ctx, s.log).Infow("user deactivated", "user_id", userID)
	return nil
}

// ListUsers returns accounts of one role, newest first.
func (s *Service) ListUsers(ctx context.Context, role types.Role) ([]*models.User, error) {
	var out []*models.User
	if err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

// User loads one account by id.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key")
}
