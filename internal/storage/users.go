package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"projex/internal/core"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		timestamp{&u.CreatedAt}, timestamp{&u.UpdatedAt})
	u.Role = core.Role(role)
	return u, err
}

// CreateUser inserts u and returns it with its id. A duplicate email is a
// conflict.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	ts := now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.queryRow(ctx, r.db,
		`INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), ts, ts,
	).Scan(&u.ID)
	if err != nil {
		if r.dialect.uniqueViolated(err) {
			return core.User{}, core.Conflictf("User already exists")
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = ts, ts

	slog.InfoContext(ctx, "User created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, r.translate(err, "get user", core.NotFoundf("User not found"))
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return core.User{}, r.translate(err, "get user by email", core.NotFoundf("User not found"))
	}
	return u, nil
}

// UpdateUserProfile stores name and email. A duplicate email is a conflict.
func (r *Repository) UpdateUserProfile(ctx context.Context, id int64, name, email string) (core.User, error) {
	res, err := r.exec(ctx, r.db,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, strings.ToLower(strings.TrimSpace(email)), now(), id)
	if err != nil {
		if r.dialect.uniqueViolated(err) {
			return core.User{}, core.Conflictf("Email already in use")
		}
		return core.User{}, fmt.Errorf("update user profile: %w", err)
	}
	if err := requireAffected(res, core.NotFoundf("User not found")); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, id)
}

func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now(), id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return requireAffected(res, core.NotFoundf("User not found"))
}

// ListUsers returns every user ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.query(ctx, r.db, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
