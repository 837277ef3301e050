package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/dorobek/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminSuperuser = "admin:superuser"

	// Staff: data entry
	RoleStaff = "staff:"

	// Viewer: read-only reporting
	RoleViewer = "viewer:"
)

var (
	AdminRoles  = []string{RoleAdmin, RoleAdminSuperuser}
	StaffRoles  = []string{RoleStaff}
	ViewerRoles = []string{RoleViewer}
	AllRoles    = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminSuperuser: 30,
		RoleAdmin:          21,

		// Staff: 20 - 11
		RoleStaff: 11,

		// Viewers: 10 - 1
		RoleViewer: 1,
	}

	Roles = []Role{
		{Name: "Viewer", Value: RoleViewer},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Superuser", Value: RoleAdminSuperuser},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	all = append(all, ViewerRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// RolesFromFlags maps the staff/superuser flags of imported accounts to roles.
func RolesFromFlags(isStaff, isSuperuser bool) []string {
	switch {
	case isSuperuser:
		return []string{RoleAdminSuperuser}
	case isStaff:
		return []string{RoleStaff}
	default:
		return []string{RoleViewer}
	}
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u User) IsSuperuser() bool {
	for _, role := range u.Roles {
		if role == RoleAdminSuperuser {
			return true
		}
	}
	return false
}

// IsStaff reports whether the user may create and modify records.
func (u User) IsStaff() bool {
	return u.IsAdmin() || u.RoleStartsWith(RoleStaff)
}

func (u User) IsViewer() bool {
	return u.RoleStartsWith(RoleViewer)
}

// ShortName is the first name, or the username when no first name was given.
func (u User) ShortName() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return u.Username
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string   `json:"first_name" validate:"max=150"`
	LastName        string   `json:"last_name" validate:"max=150"`
	Username        string   `json:"username" validate:"required,min=4,max=150,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password"` // see validatePassword
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName       *string  `json:"first_name" validate:"omitempty,max=150"`
	LastName        *string  `json:"last_name" validate:"omitempty,max=150"`
	Username        string   `json:"username" validate:"omitempty,min=4,max=150,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if uu.FirstName != nil {
		name := core.CleanString(*uu.FirstName)
		uu.FirstName = &name
	} else {
		uu.FirstName = &origUsr.FirstName
	}

	if uu.LastName != nil {
		name := core.CleanString(*uu.LastName)
		uu.LastName = &name
	} else {
		uu.LastName = &origUsr.LastName
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.IsActive == nil {
		uu.IsActive = &origUsr.IsActive
	}
	if uu.Roles == nil {
		uu.Roles = origUsr.Roles
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single User; the first non-zero field wins.
type GetFilter struct {
	ID              int
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields lists the fields users can be ordered by.
var OrderingFields = []string{"id", "username", "first_name", "last_name", "email", "is_active", "created_at", "last_login"}
