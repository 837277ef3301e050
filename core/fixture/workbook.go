package fixture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/dorobek/core"
)

// ReadWorkbook turns every sheet named "<app>.<model>" of the requested apps into fixture objects,
// grouped by app label. The header row names the fields; the "id" column is the pk.
func ReadWorkbook(r io.Reader, apps []string) (map[string][]Object, error) {
	if err := vala.BeginValidation().Validate(vala.GreaterThan(len(apps), 0, "apps")).Check(); err != nil {
		return nil, errors.Wrap(err, "at least one app label is required")
	}
	wanted := make(map[string]bool, len(apps))
	for _, app := range apps {
		wanted[strings.TrimSpace(app)] = true
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}

	fixtures := make(map[string][]Object, len(apps))
	for _, sheet := range f.GetSheetList() {
		model := strings.TrimSpace(sheet)
		if !strings.Contains(model, ".") || !wanted[App(model)] {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "reading sheet %q", sheet)
		}
		objs, err := sheetObjects(model, rows)
		if err != nil {
			return nil, errors.Wrapf(err, "sheet %q", sheet)
		}
		fixtures[App(model)] = append(fixtures[App(model)], objs...)
	}
	return fixtures, nil
}

func sheetObjects(model string, rows [][]string) ([]Object, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	fields := make([]string, len(rows[0]))
	named := make([]string, 0, len(rows[0]))
	pkIdx := -1
	for i, header := range rows[0] {
		fields[i] = core.ColumnName(header)
		if fields[i] == "id" {
			pkIdx = i
		}
		if fields[i] != "" {
			named = append(named, fields[i])
		}
	}
	if pkIdx < 0 {
		return nil, errors.New(`the sheet must contain an "id" column`)
	}
	// RemoveDuplicates works in place
	if uniq := strmangle.RemoveDuplicates(append([]string(nil), named...)); len(uniq) != len(named) {
		return nil, errors.New("the sheet has duplicate column names")
	}

	objs := make([]Object, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if pkIdx >= len(row) || strings.TrimSpace(row[pkIdx]) == "" {
			if !isBlankRow(row) {
				return nil, errors.Errorf("row %d: id is required", rowNum)
			}
			continue
		}
		pk, ok := IntValue(cellValue(row[pkIdx]))
		if !ok || pk < 1 {
			return nil, errors.Errorf("row %d: invalid id %q", rowNum, row[pkIdx])
		}

		obj := Object{Model: model, PK: pk, Fields: make(map[string]interface{})}
		for j, cell := range row {
			if j == pkIdx || j >= len(fields) || fields[j] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			obj.Fields[fields[j]] = cellValue(cell)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// cellValue types a cell: integers, booleans & comma separated integers, else the trimmed text.
func cellValue(cell string) interface{} {
	s := strings.TrimSpace(cell)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return s
			}
			ids = append(ids, id)
		}
		return ids
	}
	return s
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteFiles writes each app's objects to "<dir>/<app>.json" and returns the written paths.
func WriteFiles(dir string, fixtures map[string][]Object) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating fixtures directory")
	}
	apps := make([]string, 0, len(fixtures))
	for app := range fixtures {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	paths := make([]string, 0, len(apps))
	for _, app := range apps {
		objs := fixtures[app]
		sort.SliceStable(objs, func(i, j int) bool {
			if objs[i].Model != objs[j].Model {
				return objs[i].Model < objs[j].Model
			}
			return objs[i].PK < objs[j].PK
		})
		data, err := json.MarshalIndent(objs, "", "  ")
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s fixtures", app)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s.json", app))
		if err = os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return nil, errors.Wrapf(err, "writing %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
