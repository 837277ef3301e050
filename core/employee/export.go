package employee

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the sheet written by WriteWorkbook.
const ExportSheet = "employees"

var exportHeader = []interface{}{
	"ID", "Last name", "First name", "Degree", "Status", "In evaluation",
	"Domain", "Discipline", "Group", "Subgroup", "Position", "Department",
}

// WriteWorkbook writes rows as an xlsx workbook to w.
func WriteWorkbook(w io.Writer, rows []EmployeeRow) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", ExportSheet)

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		line := []interface{}{
			r.ID, r.LastName, r.FirstName, r.Degree, r.Status, r.InEvaluation,
			r.Domain, r.Discipline, r.Group, r.Subgroup, r.Position, r.Department,
		}
		if err = f.SetSheetRow(ExportSheet, axis, &line); err != nil {
			return err
		}
	}
	if err := f.SetPanes(ExportSheet, `{"freeze":true,"split":false,"x_split":0,"y_split":1,"top_left_cell":"A2","active_pane":"bottomLeft"}`); err != nil {
		return err
	}
	return f.Write(w)
}
