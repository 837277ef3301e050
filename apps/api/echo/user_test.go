package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/services/email"
	"github.com/trezcool/dorobek/tests"
)

var bgCtx = context.Background()

func Test_userApi_login(t *testing.T) {
	db.Reset()

	testutil.CreateUser(t, usrRepo, "Jane", "jane", "jane@test.cd", "L0ng-Pa$$word", []string{user.RoleStaff}, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone", "gone@test.cd", "L0ng-Pa$$word", nil, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: login("nobody", "L0ng-Pa$$word"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", body: login("jane", "nope"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "deactivated", body: login("gone", "L0ng-Pa$$word"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "by username", body: login("JANE ", "L0ng-Pa$$word")},
		{name: "by email", body: login("jane@test.cd", "L0ng-Pa$$word")},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/login"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.method, tt.path, "", tt.body)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}

	usr, err := usrRepo.GetUser(bgCtx, user.GetFilter{Username: "jane"})
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero(), "last login is set")
}

func Test_userApi_query(t *testing.T) {
	db.Reset()

	admin, staff, viewer, inactive := accounts(t)
	adminToken := getToken(t, admin)

	path := func(search, ordering string, isActive string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != "" {
			v.Add("is_active", isActive)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}

	runHTTPTests(t, httpTests{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: getToken(t, staff), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: path("", "id", ""), token: adminToken, wantData: marchallList(t, admin, staff, viewer, inactive)},
		{name: "search (unknown)", path: path("lol", "", ""), token: adminToken, wantData: marchallList(t)},
		{name: "search=VIEW", path: path("VIEW", "", ""), token: adminToken, wantData: marchallList(t, viewer)},
		{name: "role=staff:", path: path("", "id", "", user.RoleStaff), token: adminToken, wantData: marchallList(t, staff, inactive)},
		{name: "is_active=false", path: path("", "", "false"), token: adminToken, wantData: marchallList(t, inactive)},
		{name: "order by -username", path: path("", "-username", ""), token: adminToken, wantData: marchallList(t, viewer, staff, inactive, admin)},
	})
}

func Test_userApi_create(t *testing.T) {
	db.Reset()

	admin, staff, _, _ := accounts(t)
	adminToken := getToken(t, admin)

	newUser := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			FirstName:       "New",
			Username:        uname,
			Email:           email,
			Password:        "Sup3r-S3cr3t!",
			PasswordConfirm: "Sup3r-S3cr3t!",
			Roles:           roles,
		})
	}

	runHTTPTests(t, httpTests{
		{name: "Admin required", body: newUser("newbie", "newbie@test.cd"), token: getToken(t, staff), wantCode: http.StatusForbidden},
		{
			name: "username taken", body: newUser("staff", "other@test.cd"), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "roles above own", body: newUser("boss", "boss@test.cd", user.RoleAdminSuperuser), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": errNoPermsToSetRoles}),
		},
		{name: "created", body: newUser("newbie", "newbie@test.cd", user.RoleStaff), token: adminToken, wantCode: http.StatusCreated},
	}.withMethod(http.MethodPost, "/api/users"))

	usr, err := usrRepo.GetUser(bgCtx, user.GetFilter{Username: "newbie"})
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStaff}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Sup3r-S3cr3t!"))
}

func Test_userApi_retrieve_update_destroy(t *testing.T) {
	db.Reset()

	admin, staff, viewer, _ := accounts(t)
	staffToken := getToken(t, staff)
	adminToken := getToken(t, admin)
	staffPath := "/api/users/" + itoa(staff.ID)

	runHTTPTests(t, httpTests{
		{name: "own account", path: staffPath, token: staffToken, wantData: marchallObj(t, staff)},
		{name: "other account hidden", path: "/api/users/" + itoa(viewer.ID), token: staffToken, wantCode: http.StatusNotFound},
		{name: "admin sees all", path: "/api/users/" + itoa(viewer.ID), token: adminToken, wantData: marchallObj(t, viewer)},
		{name: "unknown", path: "/api/users/999", token: adminToken, wantCode: http.StatusNotFound},
		{name: "roles are admin only", method: http.MethodPut, path: staffPath, token: staffToken, body: []byte(`{"roles":["admin:"]}`), wantCode: http.StatusForbidden},
		{name: "own names", method: http.MethodPut, path: staffPath, token: staffToken, body: []byte(`{"first_name":" Stella ","last_name":"Ngoy"}`)},
		{name: "no suicide", method: http.MethodDelete, path: "/api/users/" + itoa(admin.ID), token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin deletes", method: http.MethodDelete, path: "/api/users/" + itoa(viewer.ID), token: adminToken, wantCode: http.StatusNoContent},
	})

	usr, err := usrRepo.GetUser(bgCtx, user.GetFilter{ID: staff.ID})
	require.NoError(t, err)
	assert.Equal(t, "Stella", usr.FirstName)
	assert.Equal(t, "Ngoy", usr.LastName)

	_, err = usrRepo.GetUser(bgCtx, user.GetFilter{ID: viewer.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_userApi_destroyMultiple(t *testing.T) {
	db.Reset()

	admin, staff, viewer, inactive := accounts(t)
	adminToken := getToken(t, admin)

	runHTTPTests(t, httpTests{
		{name: "no suicide", path: "/api/users?id=" + itoa(staff.ID) + "&id=" + itoa(admin.ID), token: adminToken, wantCode: http.StatusForbidden},
		{name: "deleted", path: "/api/users?id=" + itoa(viewer.ID) + "&id=" + itoa(inactive.ID), token: adminToken, wantCode: http.StatusNoContent},
	}.withMethod(http.MethodDelete, ""))

	users, err := usrRepo.QueryUsers(bgCtx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func Test_userApi_refreshToken(t *testing.T) {
	db.Reset()

	_, staff, _, inactive := accounts(t)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   itoa(staff.ID),
			Audience:  "Staff",
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * jwtRefreshExpirationDelta).Unix(), // older than threshold
		IsStaff:      staff.IsStaff(),
		Roles:        staff.Roles,
	}
	unrefreshableToken, err := GenerateToken(unrefreshableClaims)
	require.NoError(t, err)

	runHTTPTests(t, httpTests{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, inactive), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, staff)},
	}.withMethod(http.MethodPost, "/api/users/token-refresh"))
}

func Test_userApi_passwordReset(t *testing.T) {
	db.Reset()
	emailsvc.ClearSentMessages()

	usr := testutil.CreateUser(t, usrRepo, "Jane", "jane", "jane@test.cd", "L0ng-Pa$$word", nil, true)

	rec := serve(http.MethodPost, "/api/users/password-reset", "", []byte(`{"email":"unknown@test.cd"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, emailsvc.SentMessages, 0, "no email for unknown addresses")

	rec = serve(http.MethodPost, "/api/users/password-reset", "", []byte(`{"email":"JANE@test.cd"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "jane@test.cd", msg.To[0].Address)
	assert.True(t, strings.Contains(msg.TextContent, user.EncodeUID(usr)))

	confirm := func(uid, token string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: "N3w-Pa$$word!", PasswordConfirm: "N3w-Pa$$word!"})
	}
	runHTTPTests(t, httpTests{
		{name: "invalid token", body: confirm(user.EncodeUID(usr), "1-abc"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"token": "invalid value"})},
		{name: "reset", body: confirm(user.EncodeUID(usr), user.MakeToken(usr))},
	}.withMethod(http.MethodPost, "/api/users/password-reset-confirm"))

	usr, err := usrRepo.GetUser(bgCtx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w-Pa$$word!"))
}

func Test_userApi_queryRoles(t *testing.T) {
	db.Reset()

	admin, _, viewer, _ := accounts(t)
	runHTTPTests(t, httpTests{
		{name: "Admin required", path: "/api/users/roles", token: getToken(t, viewer), wantCode: http.StatusForbidden},
		{name: "roles", path: "/api/users/roles", token: getToken(t, admin), wantData: marchallObj(t, user.Roles)},
	})
}
