// Package fixture turns spreadsheets into JSON fixtures and loads fixtures into the database.
package fixture

import (
	"fmt"
	"sort"
	"strings"
)

// Object is a fixture entry: the serialized form of one row of a model.
type Object struct {
	Model  string                 `json:"model"`
	PK     int                    `json:"pk"`
	Fields map[string]interface{} `json:"fields"`
}

// Link is a many-to-many field stored in a join table.
type Link struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
}

// Model tells where the objects of a fixture model are stored.
type Model struct {
	Table   string
	Columns map[string]string // field -> column
	Links   map[string]Link   // many-to-many fields
}

func named(table string, parentField ...string) Model {
	m := Model{Table: table, Columns: map[string]string{"name": "name", "abbreviation": "abbreviation"}}
	for _, f := range parentField {
		m.Columns[f] = "parent_id"
	}
	return m
}

// Models lists the models fixtures may be loaded into.
var Models = map[string]Model{
	"units.university":     named("universities"),
	"units.faculty":        named("faculties", "university"),
	"units.department":     named("departments", "faculty"),
	"employees.status":     named("statuses"),
	"employees.degree":     named("degrees"),
	"employees.domain":     named("domains"),
	"employees.discipline": named("disciplines", "domain"),
	"employees.group":      named("groups"),
	"employees.subgroup":   named("subgroups", "group"),
	"employees.position": {
		Table:   "positions",
		Columns: map[string]string{"name": "name"},
		Links: map[string]Link{
			"subgroups": {Table: "position_subgroups", OwnerColumn: "position_id", TargetColumn: "subgroup_id"},
		},
	},
}

// loadOrder makes parents load before their children.
var loadOrder = []string{
	"units.university", "units.faculty", "units.department",
	"employees.status", "employees.degree", "employees.domain", "employees.discipline",
	"employees.group", "employees.subgroup", "employees.position",
}

// App returns the app label of a model name ("units" for "units.faculty").
func App(model string) string {
	return strings.SplitN(model, ".", 2)[0]
}

// Check reports the first object that cannot be loaded.
func Check(objs []Object) error {
	for i, obj := range objs {
		m, ok := Models[obj.Model]
		if !ok {
			return fmt.Errorf("object %d: unknown model %q", i+1, obj.Model)
		}
		if obj.PK < 1 {
			return fmt.Errorf("object %d (%s): missing pk", i+1, obj.Model)
		}
		for field := range obj.Fields {
			_, isCol := m.Columns[field]
			_, isLink := m.Links[field]
			if !isCol && !isLink {
				return fmt.Errorf("object %d (%s): unknown field %q", i+1, obj.Model, field)
			}
		}
	}
	return nil
}

// sortForLoading orders objs by model dependencies, then by pk.
func sortForLoading(objs []Object) {
	rank := make(map[string]int, len(loadOrder))
	for i, m := range loadOrder {
		rank[m] = i
	}
	sort.SliceStable(objs, func(i, j int) bool {
		if ri, rj := rank[objs[i].Model], rank[objs[j].Model]; ri != rj {
			return ri < rj
		}
		return objs[i].PK < objs[j].PK
	})
}

// IntValue converts a decoded fixture value to an integer.
func IntValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// IntList converts a decoded many-to-many value (a list or a single ID) to IDs.
func IntList(v interface{}) ([]int, error) {
	switch vals := v.(type) {
	case nil:
		return nil, nil
	case []int:
		return vals, nil
	case []interface{}:
		ids := make([]int, 0, len(vals))
		for _, val := range vals {
			id, ok := IntValue(val)
			if !ok {
				return nil, fmt.Errorf("invalid ID %v", val)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	if id, ok := IntValue(v); ok {
		return []int{id}, nil
	}
	return nil, fmt.Errorf("invalid ID list %v", v)
}
