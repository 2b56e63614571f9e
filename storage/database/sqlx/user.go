package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, password_hash,
	country, province, postal_code, telephone, created_at, updated_at, last_login`

var userOrderColumns = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	Country      string         `db:"country"`
	Province     string         `db:"province"`
	PostalCode   string         `db:"postal_code"`
	Telephone    string         `db:"telephone"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     null.BoolFromPtr(usr.IsActive),
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		Country:      usr.Country,
		Province:     usr.Province,
		PostalCode:   usr.PostalCode,
		Telephone:    usr.Telephone,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive.Ptr(),
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
		Profile: user.Profile{
			Country:    r.Country,
			Province:   r.Province,
			PostalCode: r.PostalCode,
			Telephone:  r.Telephone,
		},
	}
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users
		WHERE (username = $1 OR email = $2) AND NOT (id::text = ANY($3))`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, username, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && r.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.NewString()
	q := `INSERT INTO users (` + userColumns + `) VALUES (:id, :name, :username, :email, :is_active, :roles,
		:password_hash, :country, :province, :postal_code, :telephone, :created_at, :updated_at, :last_login)`
	if _, err := getExec(repo.exec, exec).NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			prefixes := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				prefixes = append(prefixes, role+"%")
			}
			w.add("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY(?))", pq.Array(prefixes))
		}
		if filter.IsActive != nil {
			if *filter.IsActive {
				w.add("is_active IS NOT FALSE")
			} else {
				w.add("is_active = FALSE")
			}
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	exe := getExec(repo.exec, exec)
	q := `SELECT ` + userColumns + ` FROM users` + w.String() + core.OrderByClause(ordering, userOrderColumns, "created_at DESC")
	var rows []userRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		if uname == "" {
			uname = email
		}
		w.add("username = ? OR email = ?", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	exe := getExec(repo.exec, exec)
	var r userRow
	q := `SELECT ` + userColumns + ` FROM users` + w.String() + ` LIMIT 1`
	if err := exe.GetContext(ctx, &r, exe.Rebind(q), w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active,
		roles = :roles, password_hash = :password_hash, country = :country, province = :province,
		postal_code = :postal_code, telephone = :telephone, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := getExec(repo.exec, exec).NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM users WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted users")
	}
	return int(n), nil
}
