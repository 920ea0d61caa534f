package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library-service/internal/db"
	"library-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	List(ctx context.Context, page, perPage int) ([]User, int, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int) error
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	AssignRole(ctx context.Context, userID, roleID int) error
	ReplaceRoles(ctx context.Context, userID, roleID int) error
	EmailTakenByOther(ctx context.Context, email string, excludeID int) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(bdb *bun.DB, m *metrics.Metrics) Repository {
	// The join model has to be known to bun before any m2m query runs.
	bdb.RegisterModel((*UserRole)(nil))
	return &repository{db: bdb, metrics: m}
}

func (r *repository) Create(ctx context.Context, user *User) (*User, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "users", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) List(ctx context.Context, page, perPage int) ([]User, int, error) {
	var users []User

	start := time.Now()
	total, err := r.db.NewSelect().
		Model(&users).
		Relation("Roles").
		Order("u.id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*User, error) {
	user := new(User)

	start := time.Now()
	err := r.db.NewSelect().
		Model(user).
		Relation("Roles").
		Where("u.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := new(User)

	start := time.Now()
	err := r.db.NewSelect().
		Model(user).
		Relation("Roles").
		Where("u.email = ?", email).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Column("name", "email", "password").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model(&User{ID: id}).
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "users", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	role := new(Role)

	start := time.Now()
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "roles", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (r *repository) AssignRole(ctx context.Context, userID, roleID int) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&UserRole{UserID: userID, RoleID: roleID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "user_roles", time.Since(start), err)
	return err
}

// ReplaceRoles drops the user's current role set and assigns a single role.
func (r *repository) ReplaceRoles(ctx context.Context, userID, roleID int) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*UserRole)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "user_roles", time.Since(start), err)

	if err != nil {
		return err
	}
	return r.AssignRole(ctx, userID, roleID)
}

func (r *repository) EmailTakenByOther(ctx context.Context, email string, excludeID int) (bool, error) {
	start := time.Now()
	taken, err := r.db.NewSelect().
		Model((*User)(nil)).
		Where("email = ?", email).
		Where("id != ?", excludeID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)
	return taken, err
}
