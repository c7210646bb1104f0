package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"accountd.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle. The handle is constructed once at
// process start and passed in; the store never owns global state.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore                 { return &pgUserStore{db: s.db} }
func (s *PGStore) RefreshTokens() RefreshTokenStore { return &pgTokenStore{db: s.db} }

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------

type pgUserStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, name, bio, created_at, updated_at`

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, password_hash, name, bio)
		 values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Bio,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *pgUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, NormalizeEmail(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update reads the row, merges the supplied fields and writes it back inside
// one transaction, rather than assembling SQL from whichever fields arrived.
func (s *pgUserStore) Update(ctx context.Context, id string, params UpdateUserParams) (*User, error) {
	if params.Empty() {
		return nil, ErrNoUpdateFields
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var u User
	row := tx.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1 for update`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	params.Apply(&u)

	if err := tx.QueryRowContext(ctx,
		`update users set email=$2, name=$3, bio=$4, updated_at=now()
		 where id=$1
		 returning updated_at`,
		u.ID, u.Email, u.Name, u.Bio,
	).Scan(&u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) Delete(ctx context.Context, id string) (bool, error) {
	// refresh_tokens rows go with the user via the FK cascade.
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Refresh-token ledger ------------------------------------------------------

type pgTokenStore struct{ db *sql.DB }

func (s *pgTokenStore) Insert(ctx context.Context, token, userID string, expiresAt time.Time) (string, error) {
	id := ids.New()
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, token, user_id, expires_at) values($1,$2,$3,$4)`,
		id, token, userID, expiresAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateToken
		}
		return "", err
	}
	return id, nil
}

func (s *pgTokenStore) IsValid(ctx context.Context, token string) (bool, error) {
	var valid bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from refresh_tokens where token=$1 and expires_at > now())`,
		token,
	).Scan(&valid)
	if err != nil {
		return false, err
	}
	return valid, nil
}

func (s *pgTokenStore) Remove(ctx context.Context, token string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where token=$1`, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rotate runs the one-time-use exchange as a serializable transaction. The
// delete doubles as the validity guard: a concurrent caller that already spent
// the token deletes zero rows here and observes ErrInvalidRefreshToken.
func (s *pgTokenStore) Rotate(ctx context.Context, old, next, userID string, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`delete from refresh_tokens where token=$1 and expires_at > now()`, old)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidRefreshToken
	}

	if _, err := tx.ExecContext(ctx,
		`insert into refresh_tokens(id, token, user_id, expires_at) values($1,$2,$3,$4)`,
		ids.New(), next, userID, expiresAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return err
	}
	return tx.Commit()
}
