package store

import "context"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

const userCols = `id, username, email`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	return u, classify(err)
}

// CreateUser returns ErrConflict when the email is taken.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	out, err := scanUser(s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email) VALUES ($1, $2) RETURNING `+userCols,
		u.Username, u.Email))
	return out, classify(err)
}

func (s *Store) UpdateUser(ctx context.Context, id int64, u User) (User, error) {
	out, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET username = $2, email = $3 WHERE id = $1 RETURNING `+userCols,
		id, u.Username, u.Email))
	return out, classify(err)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return mustAffect(s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}
