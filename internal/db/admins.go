package db

import "context"

// AdminPasswordHash returns the stored hash for username, or ErrNotFound.
func (s *Store) AdminPasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT password FROM admins WHERE username = $1
	`, username).Scan(&hash)
	if err != nil {
		return "", classify("find admin", err)
	}
	return hash, nil
}

// SeedAdmin inserts the default admin unless a row with that username
// exists. It reports whether a row was created.
func (s *Store) SeedAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (username, password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, passwordHash)
	if err != nil {
		return false, classify("seed admin", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("seed admin", err)
	}
	return n > 0, nil
}
