package user

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/dorobek/core"
)

// DefaultSheet is the sheet read by ReadWorkbook when none is given.
const DefaultSheet = "accounts.user"

var (
	importColumns  = []string{"id", "username", "password", "first_name", "last_name", "email", "is_staff", "is_superuser"}
	requiredFields = []string{"id", "username", "password"}
)

type (
	// Record is one row of an accounts workbook.
	Record struct {
		Row         int
		ID          int
		Username    string
		Password    string
		FirstName   string
		LastName    string
		Email       string
		IsStaff     bool
		IsSuperuser bool
	}

	ImportFailure struct {
		Row      int
		Username string
		Reason   string
	}

	ImportReport struct {
		Created []string
		Failed  []ImportFailure
	}
)

// User builds an active User out of rec, hashing its password.
func (rec Record) User() (User, error) {
	usr := User{
		ID:        rec.ID,
		Username:  strings.ToLower(rec.Username),
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Email:     strings.ToLower(rec.Email),
		IsActive:  true,
		Roles:     RolesFromFlags(rec.IsStaff, rec.IsSuperuser),
	}
	if err := usr.SetPassword(rec.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return usr, nil
}

// ReadWorkbook reads the user records of sheet in the xlsx workbook r.
// A workbook holding a single sheet is read whatever its name.
// Every column of importColumns must be present; id, username & password must be set on every row.
func ReadWorkbook(r io.Reader, sheet string) ([]Record, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	sheets := f.GetSheetList()
	if len(sheets) == 1 {
		sheet = sheets[0]
	} else if !strmangle.SetInclude(sheet, sheets) {
		return nil, errors.Errorf("sheet %q not found in workbook; available sheets: %s", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("sheet %q is empty", sheet)
	}

	colIdx := make(map[string]int, len(rows[0]))
	headers := make([]string, 0, len(rows[0]))
	for i, header := range rows[0] {
		if name := core.ColumnName(header); name != "" {
			colIdx[name] = i
			headers = append(headers, name)
		}
	}
	if missing := strmangle.SetComplement(importColumns, headers); len(missing) > 0 {
		return nil, errors.Errorf("the sheet must contain the following columns: %s; missing: %s",
			strings.Join(importColumns, ", "), strings.Join(missing, ", "))
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		cell := func(col string) string {
			if idx := colIdx[col]; idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if isBlankRow(row) {
			continue
		}

		err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(cell("id"), "id"),
			vala.StringNotEmpty(cell("username"), "username"),
			vala.StringNotEmpty(cell("password"), "password"),
		).Check()
		if err != nil {
			return nil, errors.Errorf("row %d: the following fields are required: %s", rowNum, strings.Join(requiredFields, ", "))
		}

		rec := Record{
			Row:       rowNum,
			Username:  cell("username"),
			Password:  cell("password"),
			FirstName: cell("first_name"),
			LastName:  cell("last_name"),
			Email:     cell("email"),
		}
		if rec.ID, err = parseID(cell("id")); err != nil {
			return nil, errors.Wrapf(err, "row %d: id", rowNum)
		}
		if rec.IsStaff, err = parseBool(cell("is_staff")); err != nil {
			return nil, errors.Wrapf(err, "row %d: is_staff", rowNum)
		}
		if rec.IsSuperuser, err = parseBool(cell("is_superuser")); err != nil {
			return nil, errors.Wrapf(err, "row %d: is_superuser", rowNum)
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseID accepts integers formatted as floats ("12.0") by spreadsheet software.
func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) || f < 1 {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
