package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/user"
)

var (
	userColumns = []string{
		"id", "username", "first_name", "last_name", "email", "is_active", "roles",
		"password_hash", "created_at", "updated_at", "last_login",
	}
	userOrderingColumns = map[string]string{
		"id":         "id",
		"username":   "username",
		"first_name": "first_name",
		"last_name":  "last_name",
		"email":      "email",
		"is_active":  "is_active",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           int            `db:"id"`
	Username     string         `db:"username"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func userValues(usr user.User) map[string]interface{} {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]interface{}{
		"username":      usr.Username,
		"first_name":    usr.FirstName,
		"last_name":     usr.LastName,
		"email":         usr.Email,
		"is_active":     usr.IsActive,
		"roles":         pq.Array(roles),
		"password_hash": null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		"created_at":    usr.CreatedAt.UTC(),
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	match := sq.Or{sq.Eq{"username": username}}
	if email != "" {
		match = append(match, sq.Eq{"email": email})
	}
	q := psql.Select("username").From("users").Where(match).Limit(1)
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	var found []string
	if err := selectRows(ctx, repo.getExec(exec), &found, q); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if len(found) == 0 {
		return nil
	}
	if found[0] == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	values := userValues(usr)
	if usr.ID != 0 {
		values["id"] = usr.ID
	}

	var row userRow
	q := psql.Insert("users").SetMap(values).Suffix("RETURNING *")
	if err := getRow(ctx, exe, &row, q); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	if usr.ID != 0 {
		if err := bumpSequence(ctx, exe, "users"); err != nil {
			return user.User{}, err
		}
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	q := psql.Select(userColumns...).From("users")

	if filter != nil {
		// users with the search keyword matching any of the names, Username or Email
		if filter.Search != "" {
			q = q.Where(search(filter.Search, "username", "email", "first_name", "last_name"))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			or := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				or = append(or, sq.Expr("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ?)", role+"%"))
			}
			q = q.Where(or)
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	q = orderBy(q, ordering, userOrderingColumns)

	var rows []userRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	q := psql.Select(userColumns...).From("users").Limit(1)

	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case len(filter.UsernameOrEmail) > 0:
		vals := make([]string, 0, len(filter.UsernameOrEmail))
		for _, v := range filter.UsernameOrEmail {
			if v != "" {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where(sq.Or{sq.Eq{"username": vals}, sq.Eq{"email": vals}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	q := psql.Update("users").SetMap(userValues(usr)).Where(sq.Eq{"id": usr.ID}).Suffix("RETURNING *")
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}

// DeleteUsersByID deletes the users; their employee records go with them.
func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("users").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return cnt, nil
}
