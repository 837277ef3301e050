package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	appfs "github.com/trezcool/dorobek/fs"
	"github.com/trezcool/dorobek/services/email"
	"github.com/trezcool/dorobek/services/logger"
	"github.com/trezcool/dorobek/storage/database/dummy"
	"github.com/trezcool/dorobek/tests"
)

var (
	db      *dummydb.DB
	app     *Server
	usrRepo user.Repository

	unitSvc       unit.Service
	empSvc        employee.Service
	attainmentSvc attainment.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf := &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Dorobek",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	employee.InitValidators(validate, translator)
	if err := core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir); err != nil {
		log.Fatal(err)
	}

	// set up DB & repos
	db = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(db, usrRepo, mailSvc, conf)
	unitSvc = unit.NewService(dummydb.NewUnitRepository(db))
	empSvc = employee.NewService(db, dummydb.NewEmployeeRepository(db), usrSvc)
	attainmentSvc = attainment.NewService(db, dummydb.NewAttainmentRepository(db), empSvc)

	// set up server
	app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		UnitSvc:       unitSvc,
		EmployeeSvc:   empSvc,
		AttainmentSvc: attainmentSvc,
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type httpTests []httpTest

// withMethod fills the method & path of the tests that do not set them.
func (tests httpTests) withMethod(method, path string) httpTests {
	for i := range tests {
		if tests[i].method == "" {
			tests[i].method = method
		}
		if tests[i].path == "" {
			tests[i].path = path
		}
	}
	return tests
}

func itoa(i int) string { return strconv.Itoa(i) }

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs a request against the app.
func serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests httpTests) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// accounts creates an admin, a staff member, a viewer & a deactivated user.
func accounts(t *testing.T) (admin, staff, viewer, inactive user.User) {
	admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	staff = testutil.CreateUser(t, usrRepo, "Staff", "staff", "staff@test.cd", "", []string{user.RoleStaff}, true)
	viewer = testutil.CreateUser(t, usrRepo, "Viewer", "viewer", "viewer@test.cd", "", []string{user.RoleViewer}, true)
	inactive = testutil.CreateUser(t, usrRepo, "Gone", "gone", "gone@test.cd", "", []string{user.RoleStaff}, false)
	return
}
