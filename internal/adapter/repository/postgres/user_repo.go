package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/postgres/generated"
	"github.com/iho/booklend/internal/usecase"
)

// UserRepository implements user persistence
type UserRepository struct {
	db generated.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db generated.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, hashed_password, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.HashedPassword,
		string(user.Role),
		user.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, role, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, role, created_at
		FROM users
		WHERE username = $1
	`

	return r.scanOne(r.db.QueryRow(ctx, query, username))
}

// GetByIDForShare reads a user with FOR SHARE so it cannot be deleted
// before tx ends. Concurrent borrowers do not block each other.
func (r *UserRepository) GetByIDForShare(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	return r.getLocked(ctx, tx, id, "FOR SHARE")
}

// GetByIDForUpdate reads a user with FOR UPDATE.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	return r.getLocked(ctx, tx, id, "FOR UPDATE")
}

func (r *UserRepository) getLocked(ctx context.Context, tx usecase.Transaction, id, lock string) (*domain.User, error) {
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, username, hashed_password, role, created_at
		FROM users
		WHERE id = $1
		` + lock

	return r.scanOne(pgxTx.QueryRow(ctx, query, id))
}

// Delete deletes a user inside tx
func (r *UserRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return err
	}

	query := `DELETE FROM users WHERE id = $1`
	tag, err := pgxTx.Exec(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List retrieves users with pagination, oldest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, role, created_at
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		var (
			user domain.User
			role string
		)
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.HashedPassword,
			&role,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, translateError(err)
		}
		user.Role = domain.Role(role)
		users = append(users, &user)
	}

	return users, translateError(rows.Err())
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, translateError(err)
	}

	user.Role = domain.Role(role)
	return &user, nil
}
