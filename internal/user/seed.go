package user

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// SeedRoles inserts the built-in role set. Roles must pre-exist before any
// user can be assigned one, so this runs right after migrations.
func SeedRoles(ctx context.Context, db *bun.DB) error {
	roles := []Role{{Name: RoleAdmin}, {Name: RoleUser}}
	_, err := db.NewInsert().
		Model(&roles).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	return err
}

// SeedDefaultAdmin creates an admin account when none exists. Credentials come
// from configuration rather than being hardcoded.
func SeedDefaultAdmin(ctx context.Context, db *bun.DB, name, email, password string) error {
	exists, err := db.NewSelect().
		Model((*UserRole)(nil)).
		Join("JOIN roles AS r ON r.id = ur.role_id").
		Where("r.name = ?", RoleAdmin).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &User{Name: name, Email: email, Password: string(hash)}
	if _, err := db.NewInsert().Model(admin).Returning("*").Exec(ctx); err != nil {
		return err
	}

	role := new(Role)
	if err := db.NewSelect().Model(role).Where("name = ?", RoleAdmin).Scan(ctx); err != nil {
		return err
	}
	if _, err := db.NewInsert().Model(&UserRole{UserID: admin.ID, RoleID: role.ID}).Exec(ctx); err != nil {
		return err
	}

	slog.Info("default admin user created", "email", email)
	return nil
}
