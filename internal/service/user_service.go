package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	"github.com/noah-isme/integrity-report-api/internal/repository"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CountActiveAdmins(ctx context.Context) (int, error)
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !policy.CanViewUsers(actor) {
		return nil, nil, permissionDenied("not allowed to view users")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.User, error) {
	if !policy.CanViewUsers(actor) {
		return nil, permissionDenied("not allowed to view users")
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create adds a new active user.
func (s *UserService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateUserRequest) (*models.User, error) {
	if !policy.CanCreateUser(actor) {
		return nil, permissionDenied("not allowed to create users")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	role, ok := models.ParseUserRole(req.Role)
	if !ok {
		return nil, validationError("unknown role: " + req.Role)
	}

	user, err := s.newUser(req.Email, req.FullName, role, req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, userStoreError(err)
	}

	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, models.AuditActionUserCreate, "users", user.ID, nil,
		map[string]interface{}{"email": user.Email, "role": user.Role}))
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateUserRequest) (*models.User, error) {
	if !policy.CanEditUser(actor) {
		return nil, permissionDenied("not allowed to edit users")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	var role models.UserRole
	if req.Role != nil {
		parsed, ok := models.ParseUserRole(*req.Role)
		if !ok {
			return nil, validationError("unknown role: " + *req.Role)
		}
		role = parsed
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	old := map[string]interface{}{"email": user.Email, "full_name": user.FullName, "role": user.Role, "active": user.Active}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if role != "" {
		user.Role = role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, userStoreError(err)
	}

	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, models.AuditActionUserUpdate, "users", user.ID, old,
		map[string]interface{}{"email": user.Email, "full_name": user.FullName, "role": user.Role, "active": user.Active}))
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !policy.CanDeleteUser(actor) {
		return permissionDenied("not allowed to delete users")
	}
	if actor.UserID == id {
		return validationError("cannot delete your own account")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Store(err)
	}

	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, models.AuditActionUserDelete, "users", user.ID,
		map[string]bool{"active": user.Active}, map[string]bool{"active": false}))
	return nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*models.User, error) {
	if !isRowID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found")
	}
	return user, nil
}

// EnsureBootstrapAdmin creates the first administrator when no active admin
// exists. It is a no-op when email or password is empty.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}

	admins, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return false, appErrors.Store(err)
	}
	if admins > 0 {
		return false, nil
	}

	if strings.TrimSpace(fullName) == "" {
		fullName = "System Administrator"
	}
	user, err := s.newUser(email, fullName, models.RoleAdmin, password)
	if err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return false, userStoreError(err)
	}

	s.logger.Info("bootstrap administrator created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return true, nil
}

func (s *UserService) newUser(email, fullName string, role models.UserRole, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		Active:       true,
		PasswordHash: string(hash),
	}, nil
}

func userStoreError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return appErrors.Store(err)
}
