package usecase

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/logger"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

// UserUseCase handles user management operations
type UserUseCase struct {
	txManager TransactionManager
	userRepo  UserRepository
	loanRepo  LoanRepository
	auditRepo AuditRepository
	idGen     IDGenerator
	metrics   *metrics.Metrics
	clock     Clock
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(
	txManager TransactionManager,
	userRepo UserRepository,
	loanRepo LoanRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *UserUseCase {
	return &UserUseCase{
		txManager: txManager,
		userRepo:  userRepo,
		loanRepo:  loanRepo,
		auditRepo: auditRepo,
		idGen:     idGen,
		metrics:   metrics,
		clock:     SystemClock{},
	}
}

// SetClock overrides the wall clock used for timestamps.
func (uc *UserUseCase) SetClock(c Clock) { uc.clock = c }

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
}

// Register creates a member account.
func (uc *UserUseCase) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return uc.CreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     domain.RoleMember,
	})
}

// CreateUser creates a new user with hashed password
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = domain.RoleMember
	}
	if !input.Role.IsValid() {
		return nil, domain.ErrInvalidRole
	}

	// Check if user already exists
	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, domain.ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:             uc.idGen.Generate(),
		Username:       username,
		HashedPassword: hashedPassword,
		Role:           input.Role,
		CreatedAt:      uc.clock.Now().UTC(),
	}

	// The repository maps a unique violation to ErrUsernameTaken for
	// concurrent registrations that both passed the check above.
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.UsersCreated.Inc()
	}

	// Don't return hashed password
	user.HashedPassword = ""
	return user, nil
}

// Authenticate verifies user credentials
func (uc *UserUseCase) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := uc.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if err := verifyPassword(user.HashedPassword, password); err != nil {
		return nil, domain.ErrUnauthorized
	}

	user.HashedPassword = ""
	return user, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.HashedPassword = ""
	return user, nil
}

// ListUsers lists all users with pagination
func (uc *UserUseCase) ListUsers(ctx context.Context, actor domain.Principal, limit, offset int) ([]*domain.User, error) {
	if !actor.Role.CanManageAccounts() {
		return nil, domain.ErrInsufficientRole
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)

	users, err := uc.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	// Remove hashed passwords
	for _, user := range users {
		user.HashedPassword = ""
	}

	return users, nil
}

// DeleteUser deletes an account. Accounts holding books cannot be deleted;
// their loans have to be returned first. The user stays locked while open
// loans are counted, so a concurrent Borrow either lands first and blocks
// the delete or finds the user gone.
func (uc *UserUseCase) DeleteUser(ctx context.Context, actor domain.Principal, id string) error {
	if !actor.Role.CanManageAccounts() {
		return domain.ErrInsufficientRole
	}
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	user, err := uc.userRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return err
	}

	open, err := uc.loanRepo.ListOpenByUser(txCtx, id)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return domain.ErrUserHasOpenLoans
	}

	if err := uc.userRepo.Delete(txCtx, tx, id); err != nil {
		return err
	}

	var auditLog *domain.AuditLog
	if uc.auditRepo != nil {
		user.HashedPassword = ""
		auditLog = domain.NewAuditLog(uc.idGen.Generate(), actor, domain.AuditActionUserDelete, domain.AggregateTypeUser, id, uc.clock.Now()).
			WithStates(user, nil).
			WithRequestID(logger.RequestID(ctx))
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if auditLog != nil && uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(auditLog.Action, auditLog.Status).Inc()
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// It reports whether an account was created.
func (uc *UserUseCase) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return false, nil
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}

	_, err = uc.CreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrUsernameTaken) {
		return false, nil
	}
	return err == nil, err
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword verifies a password against a hash
func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
