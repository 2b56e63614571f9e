package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.NewString()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.query() {
		if filter == nil || matches(usr, filter) {
			users = append(users, usr)
		}
	}

	less := func(a, b user.User) bool { return a.CreatedAt.After(b.CreatedAt) }
	if len(ordering) > 0 {
		ord := ordering[0]
		key := func(u user.User) string {
			switch ord.Field {
			case "name":
				return strings.ToLower(u.Name)
			case "username":
				return u.Username
			case "email":
				return u.Email
			}
			return u.CreatedAt.Format("2006-01-02T15:04:05.000000000")
		}
		less = func(a, b user.User) bool {
			if ord.Ascending {
				return key(a) < key(b)
			}
			return key(a) > key(b)
		}
	}
	sort.SliceStable(users, func(i, j int) bool { return less(users[i], users[j]) })
	return users, nil
}

func matches(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Username), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	for _, usr := range repo.query() {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case len(filter.UsernameOrEmail) > 0:
			uname := filter.UsernameOrEmail[0]
			email := uname
			if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
				email = filter.UsernameOrEmail[1]
			}
			if (uname != "" && usr.Username == uname) || (email != "" && usr.Email == email) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
