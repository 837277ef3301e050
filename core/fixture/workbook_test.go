package fixture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newWorkbook(t *testing.T, sheets map[string][][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		f.NewSheet(name)
		for i, row := range rows {
			axis, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, axis, &row))
		}
	}
	f.DeleteSheet("Sheet1")
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbook(t *testing.T) {
	sheets := map[string][][]interface{}{
		"units.university": {
			{"ID", "Name", "Abbreviation"},
			{1, "University of Warsaw", "UW"},
			{},
			{2, "AGH", ""},
		},
		"employees.position": {
			{"id", "name", "subgroups"},
			{3, "Professor", "1, 2"},
			{4, "Adjunct", 5},
		},
		"employees.group": {{"id", "name", "abbreviation"}, {1, "Research", "R"}},
		"notes":           {{"whatever"}},
	}

	t.Run("apps required", func(t *testing.T) {
		_, err := ReadWorkbook(newWorkbook(t, sheets), nil)
		assert.Error(t, err)
	})

	t.Run("only the sheets of the requested apps", func(t *testing.T) {
		fixtures, err := ReadWorkbook(newWorkbook(t, sheets), []string{"units"})
		require.NoError(t, err)
		require.Len(t, fixtures, 1)
		assert.Equal(t, []Object{
			{Model: "units.university", PK: 1, Fields: map[string]interface{}{"name": "University of Warsaw", "abbreviation": "UW"}},
			{Model: "units.university", PK: 2, Fields: map[string]interface{}{"name": "AGH"}},
		}, fixtures["units"])
	})

	t.Run("typed cells", func(t *testing.T) {
		fixtures, err := ReadWorkbook(newWorkbook(t, sheets), []string{"units", " employees"})
		require.NoError(t, err)
		assert.Len(t, fixtures["employees"], 3)
		for _, obj := range fixtures["employees"] {
			switch obj.PK {
			case 3:
				assert.Equal(t, []int{1, 2}, obj.Fields["subgroups"])
			case 4:
				assert.Equal(t, 5, obj.Fields["subgroups"])
			}
		}
	})

	t.Run("id column required", func(t *testing.T) {
		wb := newWorkbook(t, map[string][][]interface{}{"units.faculty": {{"name"}, {"Physics"}}})
		_, err := ReadWorkbook(wb, []string{"units"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `sheet "units.faculty": the sheet must contain an "id" column`)
	})

	t.Run("invalid id", func(t *testing.T) {
		wb := newWorkbook(t, map[string][][]interface{}{"units.faculty": {{"id", "name"}, {"x", "Physics"}}})
		_, err := ReadWorkbook(wb, []string{"units"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `row 2: invalid id "x"`)
	})

	t.Run("header normalization", func(t *testing.T) {
		wb := newWorkbook(t, map[string][][]interface{}{"units.faculty": {
			{" Id", "Full Name", "University-ID", "ShortName"},
			{1, "Physics", 2, "FP"},
		}})
		fixtures, err := ReadWorkbook(wb, []string{"units"})
		require.NoError(t, err)
		assert.Equal(t, []Object{
			{Model: "units.faculty", PK: 1, Fields: map[string]interface{}{"full_name": "Physics", "university_id": 2, "short_name": "FP"}},
		}, fixtures["units"])
	})

	t.Run("duplicate columns", func(t *testing.T) {
		wb := newWorkbook(t, map[string][][]interface{}{"units.faculty": {{"id", "Name", "name"}, {1, "Physics", "Chemistry"}}})
		_, err := ReadWorkbook(wb, []string{"units"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column names")
	})
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		cell string
		want interface{}
	}{
		{cell: " 12 ", want: 12},
		{cell: "3.0", want: 3},
		{cell: "3.5", want: "3.5"},
		{cell: "TRUE", want: true},
		{cell: "false", want: false},
		{cell: "1,2, 3", want: []int{1, 2, 3}},
		{cell: "Smith, John", want: "Smith, John"},
		{cell: " Physics ", want: "Physics"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellValue(tt.cell), "cellValue(%q)", tt.cell)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fixtures")
	paths, err := WriteFiles(dir, map[string][]Object{
		"units": {
			{Model: "units.university", PK: 2, Fields: map[string]interface{}{"name": "AGH"}},
			{Model: "units.faculty", PK: 1, Fields: map[string]interface{}{"name": "Physics", "university": 2}},
		},
		"employees": {{Model: "employees.status", PK: 1, Fields: map[string]interface{}{"name": "Active"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "employees.json"), filepath.Join(dir, "units.json")}, paths)

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	objs, err := Decode(f)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "units.faculty", objs[0].Model)
	assert.Equal(t, float64(2), objs[0].Fields["university"])
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check([]Object{{Model: "employees.position", PK: 1, Fields: map[string]interface{}{"name": "Professor", "subgroups": []int{1}}}}))
	assert.EqualError(t, Check([]Object{{Model: "units.campus", PK: 1}}), `object 1: unknown model "units.campus"`)
	assert.EqualError(t, Check([]Object{{Model: "units.faculty"}}), "object 1 (units.faculty): missing pk")
	assert.EqualError(t,
		Check([]Object{{Model: "units.faculty", PK: 1, Fields: map[string]interface{}{"dean": "X"}}}),
		`object 1 (units.faculty): unknown field "dean"`)
}

func TestSortForLoading(t *testing.T) {
	objs := []Object{
		{Model: "units.department", PK: 1},
		{Model: "employees.subgroup", PK: 2},
		{Model: "units.university", PK: 2},
		{Model: "units.university", PK: 1},
		{Model: "employees.group", PK: 1},
	}
	sortForLoading(objs)
	var got []string
	for _, obj := range objs {
		got = append(got, obj.Model)
	}
	assert.Equal(t, []string{"units.university", "units.university", "units.department", "employees.group", "employees.subgroup"}, got)
	assert.Equal(t, 1, objs[0].PK)
}

func TestIntList(t *testing.T) {
	ids, err := IntList([]interface{}{float64(1), 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	ids, err = IntList(float64(3))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)

	_, err = IntList([]interface{}{"x"})
	assert.Error(t, err)
}
