package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dorobek/core"
)

func newValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func TestUser_names(t *testing.T) {
	usr := User{Username: "jdoe", FirstName: " ", LastName: "Doe"}
	assert.Equal(t, "jdoe", usr.ShortName())
	assert.Equal(t, "Doe", usr.FullName())

	usr.FirstName = "John"
	assert.Equal(t, "John", usr.ShortName())
	assert.Equal(t, "John Doe", usr.FullName())
}

func TestUser_roles(t *testing.T) {
	tests := []struct {
		roles     []string
		admin     bool
		superuser bool
		staff     bool
		viewer    bool
	}{
		{roles: []string{RoleAdminSuperuser}, admin: true, superuser: true, staff: true},
		{roles: []string{RoleAdmin}, admin: true, staff: true},
		{roles: []string{RoleStaff}, staff: true},
		{roles: []string{RoleViewer}, viewer: true},
		{roles: nil},
	}
	for _, tt := range tests {
		usr := User{Roles: tt.roles}
		assert.Equal(t, tt.admin, usr.IsAdmin(), "IsAdmin %v", tt.roles)
		assert.Equal(t, tt.superuser, usr.IsSuperuser(), "IsSuperuser %v", tt.roles)
		assert.Equal(t, tt.staff, usr.IsStaff(), "IsStaff %v", tt.roles)
		assert.Equal(t, tt.viewer, usr.IsViewer(), "IsViewer %v", tt.roles)
	}

	assert.Equal(t, []string{RoleAdminSuperuser}, RolesFromFlags(true, true))
	assert.Equal(t, []string{RoleStaff}, RolesFromFlags(true, false))
	assert.Equal(t, []string{RoleViewer}, RolesFromFlags(false, false))
	assert.Equal(t, 30, MaxRolePriority([]string{RoleViewer, RoleAdminSuperuser}))
}

func TestPasswordPolicy(t *testing.T) {
	validate, translator := newValidator(t)
	commonPasswordsMu.Lock()
	commonPasswords = []string{"p@$$w0rd"}
	commonPasswordsMu.Unlock()

	tests := []struct {
		name    string
		pwd     string
		wantMsg string
	}{
		{name: "empty", pwd: "", wantMsg: pwdMinLenText},
		{name: "min len", pwd: "lol", wantMsg: pwdMinLenText},
		{name: "whitespace", pwd: "l o loll", wantMsg: pwdNoSpaceText},
		{name: "all numeric", pwd: "12345678", wantMsg: pwdNotAllNumText},
		{name: "complexity", pwd: "lol12345", wantMsg: pwdComplexityText},
		{name: "similar to username", pwd: "Jdoe1234!", wantMsg: pwdAttrSimText},
		{name: "common", pwd: "P@$$w0rd", wantMsg: pwdNoCommonText},
		{name: "valid", pwd: "LolC@t123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{Username: "jdoe123", Password: tt.pwd, PasswordConfirm: tt.pwd}
			err := validate.Struct(nu)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			errs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("validate.Struct() error = %v, want validator.ValidationErrors", err)
			}
			msgs := errs.Translate(translator)
			assert.Contains(t, msgs, "NewUser.password")
			assert.Equal(t, tt.wantMsg, msgs["NewUser.password"])
		})
	}
}

func TestAllRolesValidation(t *testing.T) {
	validate, _ := newValidator(t)
	nu := NewUser{Username: "jdoe123", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}

	nu.Roles = []string{RoleStaff, RoleViewer}
	assert.NoError(t, validate.Struct(nu))

	nu.Roles = []string{RoleStaff, "root"}
	assert.Error(t, validate.Struct(nu))
}
