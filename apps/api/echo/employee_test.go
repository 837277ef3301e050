package echoapi

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/tests"
)

func strPtr(s string) *string { return &s }

func createNamed(t *testing.T, kind employee.Kind, name, abbr string, parent ...employee.Named) employee.Named {
	nn := employee.NewNamed{Name: name, Abbreviation: abbr}
	if len(parent) > 0 {
		nn.ParentID = &parent[0].ID
	}
	n, err := empSvc.CreateNamed(bgCtx, kind, nn)
	require.NoError(t, err)
	return n
}

func createEmployee(t *testing.T, usr user.User, ne ...employee.NewEmployee) (employee.Employee, employee.Employment) {
	data := employee.NewEmployee{UserID: usr.ID}
	if len(ne) > 0 {
		data = ne[0]
		data.UserID = usr.ID
	}
	e, em, err := empSvc.Create(bgCtx, data)
	require.NoError(t, err)
	return e, em
}

func Test_dictionaryApi(t *testing.T) {
	db.Reset()

	_, staff, viewer, _ := accounts(t)
	token := getToken(t, staff)

	sciences := createNamed(t, employee.Domain, "Natural sciences", "NS")

	runHTTPTests(t, httpTests{
		{
			name: "Staff required", method: http.MethodPost, path: "/api/employees/dictionaries/domains", token: getToken(t, viewer),
			body: []byte(`{"name":"Humanities","abbreviation":"HUM"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "abbreviation required", method: http.MethodPost, path: "/api/employees/dictionaries/domains", token: token,
			body: []byte(`{"name":"Humanities"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"abbreviation": "this field is required"}),
		},
		{
			name: "degrees have no abbreviation", method: http.MethodPost, path: "/api/employees/dictionaries/degrees", token: token,
			body: []byte(`{"name":"PhD","abbreviation":"PHD"}`), wantCode: http.StatusCreated,
			wantData: marchallObj(t, employee.Named{ID: 1, Kind: employee.Degree, Name: "PhD"}),
		},
		{
			name: "parent required", method: http.MethodPost, path: "/api/employees/dictionaries/disciplines", token: token,
			body: []byte(`{"name":"Physics","abbreviation":"PHY"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"parent_id": "this field is required"}),
		},
		{
			name: "invalid parent", method: http.MethodPost, path: "/api/employees/dictionaries/disciplines", token: token,
			body: []byte(`{"name":"Physics","abbreviation":"PHY","parent_id":42}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"parent_id": "invalid domain"}),
		},
		{
			name: "discipline created", method: http.MethodPost, path: "/api/employees/dictionaries/disciplines", token: token,
			body: []byte(`{"name":"Physics","abbreviation":"PHY","parent_id":` + itoa(sciences.ID) + `}`), wantCode: http.StatusCreated,
		},
		{name: "unknown", path: "/api/employees/dictionaries/statuses/1", token: token, wantCode: http.StatusNotFound},
		{
			name: "renamed", method: http.MethodPut, path: "/api/employees/dictionaries/domains/" + itoa(sciences.ID), token: token,
			body: []byte(`{"name":"Sciences"}`),
			wantData: marchallObj(t, employee.Named{ID: sciences.ID, Kind: employee.Domain, Name: "Sciences", Abbreviation: "NS"}),
		},
	})

	disciplines, err := empSvc.QueryNamed(bgCtx, employee.Discipline, nil, nil)
	require.NoError(t, err)
	require.Len(t, disciplines, 1)
	assert.Equal(t, "Physics", disciplines[0].Name)
	assert.Equal(t, sciences.ID, *disciplines[0].ParentID)
}

func Test_employeeApi_create(t *testing.T) {
	db.Reset()

	_, staff, viewer, _ := accounts(t)
	token := getToken(t, staff)
	jane := testutil.CreateUser(t, usrRepo, "Jane", "jane", "jane@test.cd", "", nil, true)
	createEmployee(t, viewer, employee.NewEmployee{ORCID: strPtr("0000-0002-1825-009X")})

	newEmployee := func(userID int, extra string) []byte {
		return []byte(`{"user_id":` + itoa(userID) + extra + `}`)
	}

	runHTTPTests(t, httpTests{
		{name: "user required", body: []byte(`{"sex":"M"}`), token: token, wantCode: http.StatusBadRequest},
		{
			name: "unknown user", body: newEmployee(404, ""), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"user_id": "invalid user"}),
		},
		{
			name: "user taken", body: newEmployee(viewer.ID, ""), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"user_id": employee.ErrUserTaken.Error()}),
		},
		{name: "bad ORCID", body: newEmployee(jane.ID, `,"orcid":"1234"`), token: token, wantCode: http.StatusBadRequest},
		{
			name: "ORCID taken", body: newEmployee(jane.ID, `,"orcid":"0000-0002-1825-009x"`), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"orcid": employee.ErrORCIDExists.Error()}),
		},
	}.withMethod(http.MethodPost, "/api/employees"))

	rec := serve(http.MethodPost, "/api/employees", token, newEmployee(jane.ID, `,"in_evaluation":false`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EmployeeResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, "/api/employees/"+itoa(resp.ID), rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, jane.ID, resp.UserID)
	assert.Equal(t, "jane", resp.Username)
	assert.Equal(t, employee.Female, resp.Sex)
	assert.False(t, resp.InEvaluation)
	require.NotNil(t, resp.Employment, "an employment comes with every new employee")
	assert.Equal(t, resp.ID, resp.Employment.EmployeeID)
	assert.Nil(t, resp.Employment.DepartmentID)
}

func Test_employeeApi_query_export(t *testing.T) {
	db.Reset()

	_, staff, viewer, _ := accounts(t)
	token := getToken(t, viewer)

	ns := createNamed(t, employee.Domain, "Natural sciences", "NS")
	phy := createNamed(t, employee.Discipline, "Physics", "PHY", ns)
	phd := createNamed(t, employee.Degree, "PhD", "")

	zoe := testutil.CreateUser(t, usrRepo, "Zoe", "zoe", "zoe@test.cd", "", nil, true)
	amani := testutil.CreateUser(t, usrRepo, "Amani", "amani", "amani@test.cd", "", nil, true)
	ez, _ := createEmployee(t, zoe, employee.NewEmployee{DegreeID: &phd.ID, DisciplineID: &phy.ID})
	ea, _ := createEmployee(t, amani)

	zoeRow := employee.EmployeeRow{ID: ez.ID, FirstName: "Zoe", Degree: "PhD", InEvaluation: true, Domain: "NS", Discipline: "PHY"}
	amaniRow := employee.EmployeeRow{ID: ea.ID, FirstName: "Amani", InEvaluation: true}

	runHTTPTests(t, httpTests{
		{name: "Auth required", path: "/api/employees", wantCode: http.StatusUnauthorized},
		{name: "all", path: "/api/employees", token: token, wantData: marchallList(t, zoeRow, amaniRow)},
		{name: "ordered", path: "/api/employees?ordering=first_name", token: token, wantData: marchallList(t, amaniRow, zoeRow)},
		{name: "search", path: "/api/employees?search=AMA", token: token, wantData: marchallList(t, amaniRow)},
		{name: "by discipline", path: "/api/employees?discipline=" + itoa(phy.ID), token: token, wantData: marchallList(t, zoeRow)},
		{name: "by id", path: "/api/employees?search=" + itoa(ea.ID), token: getToken(t, staff), wantData: marchallList(t, amaniRow)},
	})

	rec := serve(http.MethodGet, "/api/employees/export?ordering=first_name", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="employees_`))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(employee.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Amani", rows[1][2])
	assert.Equal(t, "Zoe", rows[2][2])
	assert.Equal(t, "PhD", rows[2][3])
}

func Test_employeeApi_retrieve_update(t *testing.T) {
	db.Reset()

	_, staff, _, _ := accounts(t)
	token := getToken(t, staff)

	phd := createNamed(t, employee.Degree, "PhD", "")
	zoe := testutil.CreateUser(t, usrRepo, "Zoe", "zoe", "zoe@test.cd", "", nil, true)
	e, em := createEmployee(t, zoe)
	path := "/api/employees/" + itoa(e.ID)

	runHTTPTests(t, httpTests{
		{name: "retrieve", path: path, token: token, wantData: marchallObj(t, EmployeeResponse{Employee: e, Employment: &em})},
		{name: "unknown", path: "/api/employees/99", token: token, wantCode: http.StatusNotFound},
		{
			name: "invalid degree", method: http.MethodPut, path: path, token: token, body: []byte(`{"degree_id":77}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"degree_id": "invalid degree"}),
		},
		{name: "degree set", method: http.MethodPut, path: path, token: token, body: []byte(`{"degree_id":` + itoa(phd.ID) + `,"sex":"M"}`)},
	})

	got, err := empSvc.GetByID(bgCtx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "PhD", got.DegreeName)
	assert.Equal(t, employee.Male, got.Sex)

	// a deleted employment comes back with the next update
	require.NoError(t, empSvc.DeleteEmployments(bgCtx, em.ID))

	rec := serve(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EmployeeResponse
	unmarshal(t, rec, &resp)
	assert.Nil(t, resp.Employment)

	rec = serve(http.MethodPut, path, token, []byte(`{"degree_id":0}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = EmployeeResponse{}
	unmarshal(t, rec, &resp)
	assert.Nil(t, resp.DegreeID)
	require.NotNil(t, resp.Employment)
	assert.Equal(t, e.ID, resp.Employment.EmployeeID)
}

func Test_employeeApi_employments(t *testing.T) {
	db.Reset()

	_, staff, _, _ := accounts(t)
	token := getToken(t, staff)

	uni, err := unitSvc.Create(bgCtx, unit.University, unit.NewUnit{Name: "University of Kinshasa", Abbreviation: "UNIKIN"})
	require.NoError(t, err)
	fac, err := unitSvc.Create(bgCtx, unit.Faculty, unit.NewUnit{Name: "Sciences", Abbreviation: "FS", ParentID: &uni.ID})
	require.NoError(t, err)
	dep, err := unitSvc.Create(bgCtx, unit.Department, unit.NewUnit{Name: "Mathematics", Abbreviation: "MATH", ParentID: &fac.ID})
	require.NoError(t, err)

	teaching := createNamed(t, employee.Group, "Teaching staff", "TS")
	professors := createNamed(t, employee.Subgroup, "Professors", "P", teaching)
	position, err := empSvc.CreatePosition(bgCtx, employee.NewPosition{Name: "Full professor", SubgroupIDs: []int{professors.ID}})
	require.NoError(t, err)
	require.NotNil(t, position.Group)
	assert.Equal(t, teaching.ID, position.Group.ID)

	zoe := testutil.CreateUser(t, usrRepo, "Zoe", "zoe", "zoe@test.cd", "", nil, true)
	_, em := createEmployee(t, zoe)
	path := "/api/employees/employments/" + itoa(em.ID)

	runHTTPTests(t, httpTests{
		{
			name: "invalid department", method: http.MethodPut, path: path, token: token, body: []byte(`{"department_id":` + itoa(fac.ID+100) + `}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"department_id": "invalid department"}),
		},
		{
			name: "invalid position", method: http.MethodPut, path: path, token: token, body: []byte(`{"position_id":9}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"position_id": "invalid position"}),
		},
		{
			name: "located", method: http.MethodPut, path: path, token: token,
			body: []byte(`{"department_id":` + itoa(dep.ID) + `,"position_id":` + itoa(position.ID) + `,"subgroup_id":` + itoa(professors.ID) + `}`),
		},
		{
			name: "listed", path: "/api/employees/employments?department=" + itoa(dep.ID), token: token,
			wantData: marchallList(t, employee.EmploymentRow{
				ID: em.ID, EmployeeID: em.EmployeeID, Employee: "Zoe",
				Group: "Teaching staff", Subgroup: "Professors", Position: "Full professor", Department: "Mathematics",
			}),
		},
	})

	got, err := empSvc.GetEmployment(bgCtx, em.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zoe (Full professor, P, MATH)", got.String())

	// deleting the department unlinks the employment
	require.NoError(t, unitSvc.Delete(bgCtx, unit.Department, dep.ID))
	got, err = empSvc.GetEmployment(bgCtx, em.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DepartmentID)
}
