package fixture_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/storage/database/dummy"
)

const fixtures = `[
  {"model": "units.department", "pk": 5, "fields": {"name": "Optics", "abbreviation": "DO", "faculty": 3}},
  {"model": "units.faculty", "pk": 3, "fields": {"name": "Physics", "abbreviation": "FUW", "university": 1}},
  {"model": "units.university", "pk": 1, "fields": {"name": "University of Warsaw", "abbreviation": "UW"}},
  {"model": "employees.position", "pk": 2, "fields": {"name": "Professor", "subgroups": [4]}},
  {"model": "employees.subgroup", "pk": 4, "fields": {"name": "Professors", "abbreviation": "PROF", "group": 1}},
  {"model": "employees.group", "pk": 1, "fields": {"name": "Research staff", "abbreviation": "R"}}
]`

func TestService_Load(t *testing.T) {
	ctx := context.Background()
	db := dummydb.Open()
	svc := fixture.NewService(db, dummydb.NewFixtureRepository(db))
	unitSvc := unit.NewService(dummydb.NewUnitRepository(db))
	usrSvc := user.NewService(db, dummydb.NewUserRepository(db), nil, &core.Config{SecretKey: "secret"})
	empSvc := employee.NewService(db, dummydb.NewEmployeeRepository(db), usrSvc)

	objs, err := fixture.Decode(strings.NewReader(fixtures))
	require.NoError(t, err)

	n, err := svc.Load(ctx, objs)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	dep, err := unitSvc.GetByID(ctx, unit.Department, 5)
	require.NoError(t, err)
	assert.Equal(t, "DO", dep.Abbreviation)
	if assert.NotNil(t, dep.University) {
		assert.Equal(t, "UW", dep.University.Abbreviation)
	}

	p, err := empSvc.GetPosition(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, p.SubgroupIDs)
	if assert.NotNil(t, p.Group) {
		assert.Equal(t, 1, p.Group.ID)
	}

	t.Run("loading again updates in place", func(t *testing.T) {
		n, err := svc.Load(ctx, []fixture.Object{{Model: "units.university", PK: 1, Fields: map[string]interface{}{"abbreviation": "UWr"}}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		uni, err := unitSvc.GetByID(ctx, unit.University, 1)
		require.NoError(t, err)
		assert.Equal(t, "University of Warsaw", uni.Name)
		assert.Equal(t, "UWr", uni.Abbreviation)
	})

	t.Run("new rows get fresh IDs", func(t *testing.T) {
		uni, err := unitSvc.Create(ctx, unit.University, unit.NewUnit{Name: "AGH", Abbreviation: "AGH"})
		require.NoError(t, err)
		assert.Greater(t, uni.ID, 1)
	})

	t.Run("invalid objects load nothing", func(t *testing.T) {
		_, err := svc.Load(ctx, []fixture.Object{
			{Model: "units.university", PK: 9, Fields: map[string]interface{}{"name": "X"}},
			{Model: "units.university", PK: 10, Fields: map[string]interface{}{"rector": "X"}},
		})
		require.Error(t, err)
		_, err = unitSvc.GetByID(ctx, unit.University, 9)
		assert.Equal(t, unit.ErrNotFound, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := fixture.Decode(strings.NewReader(`{"model": "units.university"}`))
		assert.Error(t, err)
	})
}
