package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dorobek/core/unit"
)

func createUnit(t *testing.T, kind unit.Kind, name, abbr string, parent ...unit.Unit) unit.Unit {
	nu := unit.NewUnit{Name: name, Abbreviation: abbr}
	if len(parent) > 0 {
		nu.ParentID = &parent[0].ID
	}
	u, err := unitSvc.Create(bgCtx, kind, nu)
	require.NoError(t, err)
	return u
}

func Test_unitApi_create(t *testing.T) {
	db.Reset()

	_, staff, viewer, inactive := accounts(t)
	staffToken := getToken(t, staff)
	uni := createUnit(t, unit.University, "University of Kinshasa", "UNIKIN")

	runHTTPTests(t, httpTests{
		{name: "Auth required", path: "/api/units/universities", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user", path: "/api/units/universities", token: getToken(t, inactive), body: []byte(`{"name":"A","abbreviation":"A"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Staff required", path: "/api/units/universities", token: getToken(t, viewer), body: []byte(`{"name":"A","abbreviation":"A"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "blank name", path: "/api/units/universities", token: staffToken, body: []byte(`{"name":"  ","abbreviation":"A"}`), wantCode: http.StatusBadRequest},
		{
			name: "parent required", path: "/api/units/faculties", token: staffToken, body: []byte(`{"name":"Sciences","abbreviation":"FS"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parent_id": "this field is required"}),
		},
		{
			name: "unknown parent", path: "/api/units/faculties", token: staffToken, body: []byte(`{"name":"Sciences","abbreviation":"FS","parent_id":99}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parent_id": "invalid university"}),
		},
		{
			name: "faculty created", path: "/api/units/faculties", token: staffToken, body: []byte(`{"name":" Sciences ","abbreviation":"FS","parent_id":` + itoa(uni.ID) + `}`),
			wantCode: http.StatusCreated, wantData: marchallObj(t, unit.Unit{ID: 1, Kind: unit.Faculty, Name: "Sciences", Abbreviation: "FS", ParentID: &uni.ID}),
		},
	}.withMethod(http.MethodPost, ""))
}

func Test_unitApi_query_retrieve(t *testing.T) {
	db.Reset()

	_, _, viewer, _ := accounts(t)
	token := getToken(t, viewer)

	unikin := createUnit(t, unit.University, "University of Kinshasa", "UNIKIN")
	unilu := createUnit(t, unit.University, "University of Lubumbashi", "UNILU")
	sciences := createUnit(t, unit.Faculty, "Sciences", "FS", unikin)
	law := createUnit(t, unit.Faculty, "Law", "FD", unilu)
	maths := createUnit(t, unit.Department, "Mathematics", "MATH", sciences)

	wantMaths := maths
	wantMaths.University = &unikin

	runHTTPTests(t, httpTests{
		{name: "all", path: "/api/units/universities", token: token, wantData: marchallList(t, unikin, unilu)},
		{name: "search", path: "/api/units/universities?search=lubum", token: token, wantData: marchallList(t, unilu)},
		{name: "by parent", path: "/api/units/faculties?parent=" + itoa(unilu.ID), token: token, wantData: marchallList(t, law)},
		{name: "ordering", path: "/api/units/faculties?ordering=name", token: token, wantData: marchallList(t, law, sciences)},
		{name: "department with university", path: "/api/units/departments/" + itoa(maths.ID), token: token, wantData: marchallObj(t, wantMaths)},
		{name: "unknown", path: "/api/units/faculties/42", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "invalid id", path: "/api/units/faculties/abc", token: token, wantCode: http.StatusNotFound},
	})
}

func Test_unitApi_update(t *testing.T) {
	db.Reset()

	_, staff, _, _ := accounts(t)
	token := getToken(t, staff)

	unikin := createUnit(t, unit.University, "University of Kinshasa", "UNIKIN")
	unilu := createUnit(t, unit.University, "University of Lubumbashi", "UNILU")
	sciences := createUnit(t, unit.Faculty, "Sciences", "FS", unikin)
	path := "/api/units/faculties/" + itoa(sciences.ID)

	moved := sciences
	moved.Name = "Exact Sciences"
	moved.ParentID = &unilu.ID

	runHTTPTests(t, httpTests{
		{
			name: "unknown parent", path: path, token: token, body: []byte(`{"parent_id":77}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parent_id": "invalid university"}),
		},
		{name: "keeps parent", path: path, token: token, body: []byte(`{"abbreviation":"FSE"}`)},
		{name: "moved", path: path, token: token, body: []byte(`{"name":"Exact Sciences","abbreviation":"FS","parent_id":` + itoa(unilu.ID) + `}`), wantData: marchallObj(t, moved)},
	}.withMethod(http.MethodPut, ""))
}

func Test_unitApi_destroy(t *testing.T) {
	db.Reset()

	_, staff, viewer, _ := accounts(t)
	token := getToken(t, staff)

	unikin := createUnit(t, unit.University, "University of Kinshasa", "UNIKIN")
	unilu := createUnit(t, unit.University, "University of Lubumbashi", "UNILU")
	upn := createUnit(t, unit.University, "Pedagogical University", "UPN")
	sciences := createUnit(t, unit.Faculty, "Sciences", "FS", unikin)
	maths := createUnit(t, unit.Department, "Mathematics", "MATH", sciences)

	runHTTPTests(t, httpTests{
		{name: "Staff required", path: "/api/units/universities/" + itoa(unikin.ID), token: getToken(t, viewer), wantCode: http.StatusForbidden},
		{name: "cascade", path: "/api/units/universities/" + itoa(unikin.ID), token: token, wantCode: http.StatusNoContent},
		{name: "gone", path: "/api/units/universities/" + itoa(unikin.ID), token: token, wantCode: http.StatusNotFound},
		{name: "multiple", path: "/api/units/universities?id=" + itoa(unilu.ID) + "&id=" + itoa(upn.ID), token: token, wantCode: http.StatusNoContent},
	}.withMethod(http.MethodDelete, ""))

	_, err := unitSvc.GetByID(bgCtx, unit.Faculty, sciences.ID)
	assert.Equal(t, unit.ErrNotFound, err)
	_, err = unitSvc.GetByID(bgCtx, unit.Department, maths.ID)
	assert.Equal(t, unit.ErrNotFound, err)

	units, err := unitSvc.Query(bgCtx, unit.University, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, units)
}
