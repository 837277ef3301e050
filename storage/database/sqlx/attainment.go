package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
)

var (
	attainmentOrderingColumns = map[string]string{
		"id":    "id",
		"title": "title",
	}
	authorOrderingColumns = map[string]string{
		"id":       "a.id",
		"alias":    "a.alias",
		"employee": "employee_name",
	}
	contributionOrderingColumns = map[string]string{
		"id":         "c.id",
		"order":      "c.order_no",
		"percentage": "c.percentage",
		"author":     "a.alias",
	}
)

type attainmentRepository struct {
	repository
}

var _ attainment.Repository = (*attainmentRepository)(nil) // interface compliance check

func NewAttainmentRepository(exec core.DBExecutor) attainment.Repository {
	return &attainmentRepository{repository{exec: exec}}
}

// Attainments

type attainmentRow struct {
	ID          int    `db:"id"`
	Title       string `db:"title"`
	AuthorsList string `db:"authors_list"`
}

func (r attainmentRow) attainment(kind attainment.Kind) attainment.Attainment {
	return attainment.Attainment{ID: r.ID, Kind: kind, Title: r.Title, AuthorsList: r.AuthorsList}
}

func (repo attainmentRepository) CreateAttainment(ctx context.Context, a attainment.Attainment, exec ...core.DBExecutor) (attainment.Attainment, error) {
	if !a.Kind.Valid() {
		return attainment.Attainment{}, &attainment.KindError{Kind: string(a.Kind)}
	}
	exe := repo.getExec(exec)
	values := map[string]interface{}{"title": a.Title, "authors_list": a.AuthorsList}
	if a.ID != 0 {
		values["id"] = a.ID
	}

	var row attainmentRow
	q := psql.Insert(a.Kind.Plural()).SetMap(values).Suffix("RETURNING id, title, authors_list")
	if err := getRow(ctx, exe, &row, q); err != nil {
		return attainment.Attainment{}, errors.Wrapf(err, "inserting %s", a.Kind)
	}
	if a.ID != 0 {
		if err := bumpSequence(ctx, exe, a.Kind.Plural()); err != nil {
			return attainment.Attainment{}, err
		}
	}
	return row.attainment(a.Kind), nil
}

func (repo attainmentRepository) QueryAttainments(ctx context.Context, kind attainment.Kind, filter *attainment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Attainment, error) {
	if !kind.Valid() {
		return nil, &attainment.KindError{Kind: string(kind)}
	}
	q := psql.Select("id", "title", "authors_list").From(kind.Plural())
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(search(filter.Search, "title", "authors_list"))
		}
		if filter.AuthorID != 0 {
			q = q.Where("id IN (SELECT object_id FROM contributions WHERE kind = ? AND author_id = ?)", string(kind), filter.AuthorID)
		}
	}
	q = orderBy(q, ordering, attainmentOrderingColumns)

	var rows []attainmentRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrapf(err, "querying %s", kind.Plural())
	}
	list := make([]attainment.Attainment, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.attainment(kind))
	}
	return list, nil
}

func (repo attainmentRepository) GetAttainment(ctx context.Context, kind attainment.Kind, id int, exec ...core.DBExecutor) (attainment.Attainment, error) {
	if !kind.Valid() {
		return attainment.Attainment{}, &attainment.KindError{Kind: string(kind)}
	}
	var row attainmentRow
	q := psql.Select("id", "title", "authors_list").From(kind.Plural()).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return attainment.Attainment{}, trapNoRowsErr(err, attainment.ErrNotFound, "finding "+string(kind))
	}
	return row.attainment(kind), nil
}

func (repo attainmentRepository) UpdateAttainment(ctx context.Context, a attainment.Attainment, exec ...core.DBExecutor) (attainment.Attainment, error) {
	if !a.Kind.Valid() {
		return attainment.Attainment{}, &attainment.KindError{Kind: string(a.Kind)}
	}
	var row attainmentRow
	q := psql.Update(a.Kind.Plural()).
		SetMap(map[string]interface{}{"title": a.Title, "authors_list": a.AuthorsList}).
		Where(sq.Eq{"id": a.ID}).
		Suffix("RETURNING id, title, authors_list")
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return attainment.Attainment{}, trapNoRowsErr(err, attainment.ErrNotFound, "updating "+string(a.Kind))
	}
	return row.attainment(a.Kind), nil
}

// DeleteAttainments also deletes the contributions: the generic link has no foreign key.
func (repo attainmentRepository) DeleteAttainments(ctx context.Context, kind attainment.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	if !kind.Valid() {
		return 0, &attainment.KindError{Kind: string(kind)}
	}
	exe := repo.getExec(exec)
	if _, err := execQuery(ctx, exe, psql.Delete("contributions").Where(sq.Eq{"kind": string(kind), "object_id": ids})); err != nil {
		return 0, errors.Wrap(err, "deleting contributions")
	}
	cnt, err := execQuery(ctx, exe, psql.Delete(kind.Plural()).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrapf(err, "deleting %s", kind.Plural())
	}
	return cnt, nil
}

// Authors

type authorRow struct {
	ID           int      `db:"id"`
	EmployeeID   null.Int `db:"employee_id"`
	Alias        string   `db:"alias"`
	Username     string   `db:"username"`
	FirstName    string   `db:"first_name"`
	DegreeName   string   `db:"degree_name"`
	EmployeeName string   `db:"employee_name"`
	Employed     bool     `db:"is_employed"`
	DepartmentID null.Int `db:"department_id"`
}

func (r authorRow) author() attainment.Author {
	a := attainment.Author{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID.Ptr(),
		Alias:        r.Alias,
		Employed:     r.Employed,
		DepartmentID: r.DepartmentID.Ptr(),
	}
	if a.EmployeeID != nil {
		a.Employee = employee.Employee{Username: r.Username, FirstName: r.FirstName, DegreeName: r.DegreeName}.String()
	}
	return a
}

var selectAuthor = psql.Select(
	"a.id", "a.employee_id", "a.alias",
	"COALESCE(u.username, '') AS username",
	"COALESCE(u.first_name, '') AS first_name",
	"COALESCE(d.name, '') AS degree_name",
	"COALESCE(NULLIF(u.first_name, ''), u.username, '') AS employee_name",
	"em.id IS NOT NULL AS is_employed",
	"em.department_id",
).
	From("authors a").
	LeftJoin("employees e ON e.id = a.employee_id").
	LeftJoin("users u ON u.id = e.user_id").
	LeftJoin("degrees d ON d.id = e.degree_id").
	LeftJoin("employments em ON em.employee_id = e.id")

func authorValues(a attainment.Author) map[string]interface{} {
	return map[string]interface{}{
		"employee_id": null.IntFromPtr(a.EmployeeID),
		"alias":       a.Alias,
	}
}

func authorErr(err error, msg string) error {
	if _, ok := uniqueViolation(err); ok {
		return attainment.ErrAuthorExists
	}
	return errors.Wrap(err, msg)
}

func (repo attainmentRepository) CreateAuthor(ctx context.Context, a attainment.Author, exec ...core.DBExecutor) (attainment.Author, error) {
	exe := repo.getExec(exec)
	values := authorValues(a)
	if a.ID != 0 {
		values["id"] = a.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert("authors").SetMap(values).Suffix("RETURNING id")); err != nil {
		return attainment.Author{}, authorErr(err, "inserting author")
	}
	if a.ID != 0 {
		if err := bumpSequence(ctx, exe, "authors"); err != nil {
			return attainment.Author{}, err
		}
	}
	return repo.GetAuthor(ctx, id, exe)
}

func (repo attainmentRepository) QueryAuthors(ctx context.Context, filter *attainment.AuthorFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Author, error) {
	q := selectAuthor
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(search(filter.Search, "a.alias", "u.first_name", "u.last_name"))
		}
		if filter.EmployeeID != 0 {
			q = q.Where(sq.Eq{"a.employee_id": filter.EmployeeID})
		}
	}
	q = orderBy(q, ordering, authorOrderingColumns)

	var rows []authorRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying authors")
	}
	list := make([]attainment.Author, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.author())
	}
	return list, nil
}

func (repo attainmentRepository) GetAuthor(ctx context.Context, id int, exec ...core.DBExecutor) (attainment.Author, error) {
	var row authorRow
	if err := getRow(ctx, repo.getExec(exec), &row, selectAuthor.Where(sq.Eq{"a.id": id})); err != nil {
		return attainment.Author{}, trapNoRowsErr(err, attainment.ErrAuthorNotFound, "finding author")
	}
	return row.author(), nil
}

func (repo attainmentRepository) UpdateAuthor(ctx context.Context, a attainment.Author, exec ...core.DBExecutor) (attainment.Author, error) {
	exe := repo.getExec(exec)
	cnt, err := execQuery(ctx, exe, psql.Update("authors").SetMap(authorValues(a)).Where(sq.Eq{"id": a.ID}))
	if err != nil {
		return attainment.Author{}, authorErr(err, "updating author")
	}
	if cnt == 0 {
		return attainment.Author{}, attainment.ErrAuthorNotFound
	}
	return repo.GetAuthor(ctx, a.ID, exe)
}

// DeleteAuthors relies on ON DELETE CASCADE for contributions.
func (repo attainmentRepository) DeleteAuthors(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("authors").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting authors")
	}
	return cnt, nil
}

// Contributions

type contributionRow struct {
	ID               int      `db:"id"`
	Kind             string   `db:"kind"`
	ObjectID         int      `db:"object_id"`
	Order            int      `db:"order_no"`
	AuthorID         int      `db:"author_id"`
	Percentage       int      `db:"percentage"`
	AuthorAlias      string   `db:"author_alias"`
	AuthorEmployeeID null.Int `db:"author_employee_id"`
}

func (r contributionRow) contribution() attainment.Contribution {
	return attainment.Contribution{
		ID:               r.ID,
		Kind:             attainment.Kind(r.Kind),
		ObjectID:         r.ObjectID,
		Order:            r.Order,
		AuthorID:         r.AuthorID,
		Percentage:       r.Percentage,
		AuthorAlias:      r.AuthorAlias,
		AuthorEmployeeID: r.AuthorEmployeeID.Ptr(),
	}
}

var selectContribution = psql.Select(
	"c.id", "c.kind", "c.object_id", "c.order_no", "c.author_id", "c.percentage",
	"a.alias AS author_alias", "a.employee_id AS author_employee_id",
).
	From("contributions c").
	Join("authors a ON a.id = c.author_id")

func contributionValues(c attainment.Contribution) map[string]interface{} {
	return map[string]interface{}{
		"kind":       string(c.Kind),
		"object_id":  c.ObjectID,
		"order_no":   c.Order,
		"author_id":  c.AuthorID,
		"percentage": c.Percentage,
	}
}

func (repo attainmentRepository) CreateContribution(ctx context.Context, c attainment.Contribution, exec ...core.DBExecutor) (attainment.Contribution, error) {
	exe := repo.getExec(exec)
	values := contributionValues(c)
	if c.ID != 0 {
		values["id"] = c.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert("contributions").SetMap(values).Suffix("RETURNING id")); err != nil {
		return attainment.Contribution{}, errors.Wrap(err, "inserting contribution")
	}
	if c.ID != 0 {
		if err := bumpSequence(ctx, exe, "contributions"); err != nil {
			return attainment.Contribution{}, err
		}
	}
	return repo.GetContribution(ctx, id, exe)
}

func (repo attainmentRepository) QueryContributions(ctx context.Context, filter *attainment.ContributionFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Contribution, error) {
	q := selectContribution
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(search(filter.Search, "a.alias"))
		}
		if filter.Kind != "" {
			q = q.Where(sq.Eq{"c.kind": string(filter.Kind)})
		}
		if filter.ObjectID != 0 {
			q = q.Where(sq.Eq{"c.object_id": filter.ObjectID})
		}
		if filter.AuthorID != 0 {
			q = q.Where(sq.Eq{"c.author_id": filter.AuthorID})
		}
	}
	q = orderBy(q, ordering, contributionOrderingColumns)

	var rows []contributionRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying contributions")
	}
	list := make([]attainment.Contribution, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.contribution())
	}
	return list, nil
}

func (repo attainmentRepository) GetContribution(ctx context.Context, id int, exec ...core.DBExecutor) (attainment.Contribution, error) {
	var row contributionRow
	if err := getRow(ctx, repo.getExec(exec), &row, selectContribution.Where(sq.Eq{"c.id": id})); err != nil {
		return attainment.Contribution{}, trapNoRowsErr(err, attainment.ErrContributionNotFound, "finding contribution")
	}
	return row.contribution(), nil
}

func (repo attainmentRepository) UpdateContribution(ctx context.Context, c attainment.Contribution, exec ...core.DBExecutor) (attainment.Contribution, error) {
	exe := repo.getExec(exec)
	cnt, err := execQuery(ctx, exe, psql.Update("contributions").SetMap(contributionValues(c)).Where(sq.Eq{"id": c.ID}))
	if err != nil {
		return attainment.Contribution{}, errors.Wrap(err, "updating contribution")
	}
	if cnt == 0 {
		return attainment.Contribution{}, attainment.ErrContributionNotFound
	}
	return repo.GetContribution(ctx, c.ID, exe)
}

func (repo attainmentRepository) DeleteContributions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("contributions").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting contributions")
	}
	return cnt, nil
}
