// user.go — репозиторий пользователей и реестра ролей.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/godms/internal/domain/model"
)

// UserRepository — интерфейс доступа к users и roles.
type UserRepository interface {
	// Create создаёт пользователя. ErrConflict при занятом username.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя с именем роли.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername возвращает пользователя с именем роли.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateRole переназначает роль пользователя.
	UpdateRole(ctx context.Context, userID, roleID int64) error
	// UpdatePassword записывает новый хэш и снимает must_change_password.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// GetRoleByName возвращает роль из реестра по имени (без учёта регистра).
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	// ListRoles возвращает реестр ролей.
	ListRoles(ctx context.Context) ([]*model.Role, error)
}

// userRepo — реализация UserRepository через pgx.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

// userColumns — столбцы users c join к roles.
const userColumns = `u.id, u.username, u.password_hash, u.role_id, r.name,
	u.full_name, u.email, u.is_active, u.must_change_password, u.created_at, u.updated_at`

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, password_hash, role_id, full_name, email,
			is_active, must_change_password)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		u.Username, u.PasswordHash, u.RoleID, u.FullName, u.Email,
		u.IsActive, u.MustChangePassword,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь %q уже существует", ErrConflict, u.Username)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: роль %d не существует", ErrReferentialIntegrity, u.RoleID)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.FullName, &u.Email, &u.IsActive, &u.MustChangePassword, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, userColumns)
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.username = $1`, userColumns)
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *userRepo) UpdateRole(ctx context.Context, userID, roleID int64) error {
	query := `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, roleID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: роль %d не существует", ErrReferentialIntegrity, roleID)
		}
		return fmt.Errorf("ошибка переназначения роли: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, must_change_password = FALSE, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("ошибка смены пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `SELECT id, name FROM roles WHERE LOWER(name) = LOWER($1)`

	role := &model.Role{}
	err := r.db.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения роли: %w", err)
	}
	return role, nil
}

func (r *userRepo) ListRoles(ctx context.Context) ([]*model.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ролей: %w", err)
	}
	defer rows.Close()

	var result []*model.Role
	for rows.Next() {
		role := &model.Role{}
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования роли: %w", err)
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации ролей: %w", err)
	}
	return result, nil
}
