package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurio/be-pr-approvals/internal/database"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// DirectoryRepository is the user/role directory the approver resolution
// queries. Users carry a role and a department; approver lookup scopes to
// both.
type DirectoryRepository struct {
	db *database.DB
}

// NewDirectoryRepository creates a new DirectoryRepository.
func NewDirectoryRepository(db *database.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// FindUsersByRoleAndDepartment returns users holding any of the given roles
// within the department.
func (r *DirectoryRepository) FindUsersByRoleAndDepartment(ctx context.Context, roles []string, departmentID string) ([]*model.User, error) {
	query := `
		SELECT id, email, role_id, department_id, is_super_user, created_at
		FROM users
		WHERE role_id = ANY($1) AND department_id = $2
		ORDER BY email ASC
	`
	rows, err := r.db.Query(ctx, query, roles, departmentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find approver users")
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.RoleID, &u.DepartmentID, &u.IsSuperUser, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, nil
}

// GetUserByID retrieves a directory entry.
func (r *DirectoryRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, role_id, department_id, is_super_user, created_at
		FROM users
		WHERE id = $1
	`
	u := &model.User{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.Email, &u.RoleID, &u.DepartmentID, &u.IsSuperUser, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get user")
	}
	return u, nil
}

// UpsertUser inserts a user by email or updates its role/department. Used by
// the bootstrap seeder; idempotent.
func (r *DirectoryRepository) UpsertUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, email, role_id, department_id, is_super_user)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email)
		DO UPDATE SET role_id       = EXCLUDED.role_id,
		              department_id = EXCLUDED.department_id,
		              is_super_user = EXCLUDED.is_super_user
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.RoleID, u.DepartmentID, u.IsSuperUser).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to upsert user")
	}
	return nil
}

// UpsertDepartment inserts a department by name, keeping the existing row on
// conflict. Idempotent.
func (r *DirectoryRepository) UpsertDepartment(ctx context.Context, d *model.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	query := `
		INSERT INTO departments (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, d.ID, d.Name).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to upsert department")
	}
	return nil
}
