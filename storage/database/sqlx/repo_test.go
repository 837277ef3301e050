package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/storage/database/sqlx"
	"github.com/trezcool/dorobek/tests"
)

func strPtr(s string) *string { return &s }

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	zoe := testutil.CreateUser(t, repo, "Zoe", "zoe", "zoe@test.cd", "secret", []string{user.RoleStaff}, true)
	testutil.CreateUser(t, repo, "Adam", "adam", "adam@test.cd", "secret", nil, false)

	t.Run("explicit ID", func(t *testing.T) {
		usr, err := repo.CreateUser(ctx, user.User{ID: 42, Username: "boss", Email: "boss@test.cd", Roles: user.AllRoles})
		require.NoError(t, err)
		assert.Equal(t, 42, usr.ID)
	})

	t.Run("unique username & email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Username: "zoe", Email: "other@test.cd", Roles: []string{}})
		assert.Equal(t, user.ErrUserExists, errors.Cause(err))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "new", "zoe@test.cd", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "zoe", "zoe@test.cd", []user.User{zoe}))
	})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"zoe@test.cd"}})
		require.NoError(t, err)
		assert.Equal(t, zoe.ID, usr.ID)
		assert.Equal(t, []string{user.RoleStaff}, usr.Roles)
		assert.NoError(t, usr.CheckPassword("secret"))

		_, err = repo.GetUser(ctx, user.GetFilter{ID: 1000})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		users, err := repo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, []core.DBOrdering{{Field: "username", Ascending: true}})
		require.NoError(t, err)
		var names []string
		for _, u := range users {
			names = append(names, u.Username)
		}
		assert.Equal(t, []string{"boss", "zoe"}, names)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "ADA"}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "adam", users[0].Username)
	})

	t.Run("update & delete", func(t *testing.T) {
		zoe.LastName = "Doe"
		_, err := repo.UpdateUser(ctx, zoe)
		require.NoError(t, err)
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: zoe.ID})
		require.NoError(t, err)
		assert.Equal(t, "Doe", usr.LastName)

		n, err := repo.DeleteUsersByID(ctx, []int{zoe.ID, 1000})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestUnitsAndEmployees(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(db, usrRepo, nil, &core.Config{SecretKey: "secret"})
	unitSvc := unit.NewService(sqlxrepos.NewUnitRepository(db))
	empSvc := employee.NewService(db, sqlxrepos.NewEmployeeRepository(db), usrSvc)
	fixtureSvc := fixture.NewService(db, sqlxrepos.NewFixtureRepository(db))

	n, err := fixtureSvc.Load(ctx, []fixture.Object{
		{Model: "units.department", PK: 5, Fields: map[string]interface{}{"name": "Optics", "abbreviation": "DO", "faculty": 3}},
		{Model: "units.faculty", PK: 3, Fields: map[string]interface{}{"name": "Physics", "abbreviation": "FUW", "university": 1}},
		{Model: "units.university", PK: 1, Fields: map[string]interface{}{"name": "University of Warsaw", "abbreviation": "UW"}},
		{Model: "employees.group", PK: 1, Fields: map[string]interface{}{"name": "Research staff", "abbreviation": "R"}},
		{Model: "employees.subgroup", PK: 4, Fields: map[string]interface{}{"name": "Professors", "abbreviation": "PROF", "group": 1}},
		{Model: "employees.position", PK: 2, Fields: map[string]interface{}{"name": "Professor", "subgroups": []interface{}{float64(4)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	t.Run("fixtures bump the sequences", func(t *testing.T) {
		uni, err := unitSvc.Create(ctx, unit.University, unit.NewUnit{Name: "AGH", Abbreviation: "AGH"})
		require.NoError(t, err)
		assert.Greater(t, uni.ID, 1)

		dep, err := unitSvc.GetByID(ctx, unit.Department, 5)
		require.NoError(t, err)
		require.NotNil(t, dep.University)
		assert.Equal(t, 1, dep.University.ID)
	})

	t.Run("positions", func(t *testing.T) {
		p, err := empSvc.GetPosition(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, p.SubgroupIDs)
		require.NotNil(t, p.Group)
		assert.Equal(t, "Research staff", p.Group.Name)

		// the position is rolled back with its subgroups
		_, err = empSvc.CreatePosition(ctx, employee.NewPosition{Name: "Lecturer", SubgroupIDs: []int{4, 404}})
		require.Error(t, err)
		positions, err := empSvc.QueryPositions(ctx, &employee.NamedFilter{Search: "Lecturer"}, nil)
		require.NoError(t, err)
		assert.Empty(t, positions)

		_, err = empSvc.UpdatePosition(ctx, p, employee.UpdatePosition{Name: strPtr("Full professor"), SubgroupIDs: []int{404}})
		require.Error(t, err)
		p, err = empSvc.GetPosition(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Professor", p.Name)
		assert.Equal(t, []int{4}, p.SubgroupIDs)
	})

	usr := testutil.CreateUser(t, usrRepo, "Zoe", "zoe", "zoe@test.cd", "", nil, true)
	orcid := "0000-0002-1825-009X"
	zoe, em, err := empSvc.Create(ctx, employee.NewEmployee{UserID: usr.ID, ORCID: &orcid})
	require.NoError(t, err)

	t.Run("employee uniqueness", func(t *testing.T) {
		_, _, err := empSvc.Create(ctx, employee.NewEmployee{UserID: usr.ID})
		assert.Equal(t, employee.ErrUserTaken, errors.Cause(err))
	})

	t.Run("employment listing", func(t *testing.T) {
		dep := 5
		pos := 2
		_, err := empSvc.UpdateEmployment(ctx, em, employee.UpdateEmployment{DepartmentID: &dep, PositionID: &pos})
		require.NoError(t, err)

		rows, err := empSvc.Query(ctx, &employee.QueryFilter{DepartmentID: dep}, nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, zoe.ID, rows[0].ID)
		assert.Equal(t, "DO", rows[0].Department)
		assert.Equal(t, "Professor", rows[0].Position)
	})

	t.Run("deleting a department unlinks employments", func(t *testing.T) {
		require.NoError(t, unitSvc.Delete(ctx, unit.University, 1))
		em, err := empSvc.GetEmploymentByEmployee(ctx, zoe.ID)
		require.NoError(t, err)
		assert.Nil(t, em.DepartmentID)
	})

	t.Run("authors lists", func(t *testing.T) {
		svc := attainment.NewService(db, sqlxrepos.NewAttainmentRepository(db), empSvc)
		art, err := svc.Create(ctx, attainment.Article, attainment.NewAttainment{Title: "Quantum dots"})
		require.NoError(t, err)
		author, err := svc.CreateAuthor(ctx, attainment.NewAuthor{EmployeeID: &zoe.ID, Alias: "Zoe"})
		require.NoError(t, err)
		assert.True(t, author.IsEmployed())

		_, err = svc.CreateAuthor(ctx, attainment.NewAuthor{EmployeeID: &zoe.ID, Alias: "Zoe"})
		assert.Error(t, err)

		_, err = svc.CreateContribution(ctx, attainment.NewContribution{Kind: "article", ObjectID: art.ID, AuthorID: author.ID})
		require.NoError(t, err)
		art, err = svc.GetByID(ctx, attainment.Article, art.ID)
		require.NoError(t, err)
		assert.Contains(t, art.AuthorsList, `class="employee">Zoe</a>`)

		require.NoError(t, empSvc.Delete(ctx, zoe.ID))
		author, err = svc.GetAuthor(ctx, author.ID)
		require.NoError(t, err)
		assert.Nil(t, author.EmployeeID, "authors outlive their employee")
	})
}
