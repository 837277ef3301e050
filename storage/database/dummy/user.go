package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkUniqueness(username, email, excludedUsers)
}

func (repo *userRepository) checkUniqueness(username, email string, excludedUsers []user.User) error {
	excluded := make(map[int]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.users {
		if excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
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

	if _, ok := repo.db.users[usr.ID]; ok && usr.ID != 0 {
		return user.User{}, user.ErrUserExists
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, nil); err != nil {
		return user.User{}, user.ErrUserExists
	}

	if usr.ID == 0 {
		usr.ID = repo.db.nextPK("users")
	} else {
		repo.db.usePK("users", usr.ID)
	}
	usr.Roles = append([]string{}, usr.Roles...)
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.query() {
		if filter == nil || matchUser(u, filter) {
			users = append(users, u)
		}
	}

	sortRows(users, ordering, map[string]comparator{
		"id":         func(i, j int) int { return cmpInt(users[i].ID, users[j].ID) },
		"username":   func(i, j int) int { return cmpStr(users[i].Username, users[j].Username) },
		"first_name": func(i, j int) int { return cmpStr(users[i].FirstName, users[j].FirstName) },
		"last_name":  func(i, j int) int { return cmpStr(users[i].LastName, users[j].LastName) },
		"email":      func(i, j int) int { return cmpStr(users[i].Email, users[j].Email) },
		"is_active":  func(i, j int) int { return cmpBool(users[i].IsActive, users[j].IsActive) },
		"created_at": func(i, j int) int { return cmpTime(users[i].CreatedAt, users[j].CreatedAt) },
		"last_login": func(i, j int) int { return cmpTime(users[i].LastLogin, users[j].LastLogin) },
	})
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	// users with search keyword matching any of the names, Username or Email ?
	if filter.Search != "" &&
		!contains(u.Username, filter.Search) &&
		!contains(u.Email, filter.Search) &&
		!contains(u.FirstName, filter.Search) &&
		!contains(u.LastName, filter.Search) {
		return false
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 {
		var found bool
		for _, r := range filter.Roles {
			if u.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.db.users[filter.ID]; ok {
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
			for _, v := range filter.UsernameOrEmail {
				if v != "" && (strings.EqualFold(usr.Username, v) || strings.EqualFold(usr.Email, v)) {
					return usr, nil
				}
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Roles = append([]string{}, usr.Roles...)
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		delete(repo.db.users, id)
		cnt++
		for _, e := range repo.db.employees {
			if e.UserID == id {
				repo.db.deleteEmployee(e.ID)
			}
		}
	}
	return cnt, nil
}
