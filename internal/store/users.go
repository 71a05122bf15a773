package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type UserStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

func (us *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	uc := us.catalog.Users
	schema := pq.QuoteIdentifier(uc.Schema)
	query := fmt.Sprintf(`
	SELECT
		u.id_user,
		u.name_user,
		u.email_user,
		u.id_role_user,
		u.id_dependency_user,
		r.rol_name,
		d.dependency_name AS user_secretaria_name,
		u.id_programm_user::text AS id_programm_user
	FROM %[1]s.%[2]s u
	JOIN %[1]s.%[3]s r ON u.id_role_user = r.id_role
	JOIN %[1]s.%[4]s d ON u.id_dependency_user = d.id_dependency
	WHERE u.email_user = $1`,
		schema, pq.QuoteIdentifier(uc.Users), pq.QuoteIdentifier(uc.Roles), pq.QuoteIdentifier(uc.Dependencies))

	var u User
	err := us.db.GetContext(ctx, &u, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", email, err)
	}
	return &u, nil
}
