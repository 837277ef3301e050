package dummydb

import (
	"context"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
)

type attainmentRepository struct {
	db *DB
}

var _ attainment.Repository = (*attainmentRepository)(nil) // interface compliance check

func NewAttainmentRepository(db *DB) attainment.Repository {
	return &attainmentRepository{db: db}
}

func attainmentTable(kind attainment.Kind) string { return "attainments." + string(kind) }

// Attainments

func (repo *attainmentRepository) CreateAttainment(ctx context.Context, a attainment.Attainment, exec ...core.DBExecutor) (attainment.Attainment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	table, ok := repo.db.attainments[a.Kind]
	if !ok {
		return attainment.Attainment{}, &attainment.KindError{Kind: string(a.Kind)}
	}
	if a.ID == 0 {
		a.ID = repo.db.nextPK(attainmentTable(a.Kind))
	} else {
		repo.db.usePK(attainmentTable(a.Kind), a.ID)
	}
	table[a.ID] = &a
	return a, nil
}

func (repo *attainmentRepository) QueryAttainments(ctx context.Context, kind attainment.Kind, filter *attainment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Attainment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]attainment.Attainment, 0, len(repo.db.attainments[kind]))
	for _, a := range repo.db.attainments[kind] {
		if filter != nil {
			if filter.Search != "" && !contains(a.Title, filter.Search) && !contains(core.StripTags(a.AuthorsList), filter.Search) {
				continue
			}
			if filter.AuthorID != 0 && !repo.db.hasContribution(kind, a.ID, filter.AuthorID) {
				continue
			}
		}
		list = append(list, *a)
	}

	sortRows(list, ordering, map[string]comparator{
		"id":    func(i, j int) int { return cmpInt(list[i].ID, list[j].ID) },
		"title": func(i, j int) int { return cmpStr(list[i].Title, list[j].Title) },
	})
	return list, nil
}

func (db *DB) hasContribution(kind attainment.Kind, objectID, authorID int) bool {
	for _, c := range db.contribs {
		if c.Kind == kind && c.ObjectID == objectID && c.AuthorID == authorID {
			return true
		}
	}
	return false
}

func (repo *attainmentRepository) GetAttainment(ctx context.Context, kind attainment.Kind, id int, exec ...core.DBExecutor) (attainment.Attainment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.attainments[kind][id]; ok {
		return *a, nil
	}
	return attainment.Attainment{}, attainment.ErrNotFound
}

func (repo *attainmentRepository) UpdateAttainment(ctx context.Context, a attainment.Attainment, exec ...core.DBExecutor) (attainment.Attainment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.attainments[a.Kind][a.ID]; !ok {
		return attainment.Attainment{}, attainment.ErrNotFound
	}
	repo.db.attainments[a.Kind][a.ID] = &a
	return a, nil
}

func (repo *attainmentRepository) DeleteAttainments(ctx context.Context, kind attainment.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.attainments[kind][id]; !ok {
			continue
		}
		delete(repo.db.attainments[kind], id)
		cnt++
		for _, c := range repo.db.contribs {
			if c.Kind == kind && c.ObjectID == id {
				delete(repo.db.contribs, c.ID)
			}
		}
	}
	return cnt, nil
}

// Authors

// getAuthor fills the read-only fields of an author.
func (db *DB) getAuthor(id int) (attainment.Author, bool) {
	a, ok := db.authors[id]
	if !ok {
		return attainment.Author{}, false
	}
	author := attainment.Author{ID: a.ID, EmployeeID: copyInt(a.EmployeeID), Alias: a.Alias}
	if a.EmployeeID != nil {
		if e, ok := db.getEmployee(*a.EmployeeID); ok {
			author.Employee = e.String()
		}
		if em, ok := db.employmentOf(*a.EmployeeID); ok {
			author.Employed = true
			author.DepartmentID = copyInt(em.DepartmentID)
		}
	}
	return author, true
}

func (db *DB) checkAuthorUniqueness(a attainment.Author) error {
	if a.EmployeeID == nil {
		return nil
	}
	for _, other := range db.authors {
		if other.ID != a.ID && other.EmployeeID != nil && *other.EmployeeID == *a.EmployeeID && other.Alias == a.Alias {
			return attainment.ErrAuthorExists
		}
	}
	return nil
}

func (repo *attainmentRepository) CreateAuthor(ctx context.Context, a attainment.Author, exec ...core.DBExecutor) (attainment.Author, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.db.checkAuthorUniqueness(a); err != nil {
		return attainment.Author{}, err
	}
	if a.ID == 0 {
		a.ID = repo.db.nextPK("authors")
	} else {
		repo.db.usePK("authors", a.ID)
	}
	repo.db.authors[a.ID] = &attainment.Author{ID: a.ID, EmployeeID: copyInt(a.EmployeeID), Alias: a.Alias}

	author, _ := repo.db.getAuthor(a.ID)
	return author, nil
}

func (repo *attainmentRepository) QueryAuthors(ctx context.Context, filter *attainment.AuthorFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Author, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]attainment.Author, 0, len(repo.db.authors))
	for id := range repo.db.authors {
		a, _ := repo.db.getAuthor(id)
		if filter != nil {
			if filter.Search != "" && !contains(a.Alias, filter.Search) && !repo.db.employeeNameMatches(a.EmployeeID, filter.Search) {
				continue
			}
			if filter.EmployeeID != 0 && (a.EmployeeID == nil || *a.EmployeeID != filter.EmployeeID) {
				continue
			}
		}
		list = append(list, a)
	}

	sortRows(list, ordering, map[string]comparator{
		"id":       func(i, j int) int { return cmpInt(list[i].ID, list[j].ID) },
		"alias":    func(i, j int) int { return cmpStr(list[i].Alias, list[j].Alias) },
		"employee": func(i, j int) int { return cmpStr(list[i].Employee, list[j].Employee) },
	})
	return list, nil
}

func (db *DB) employeeNameMatches(employeeID *int, search string) bool {
	if employeeID == nil {
		return false
	}
	e, ok := db.getEmployee(*employeeID)
	return ok && (contains(e.FirstName, search) || contains(e.LastName, search))
}

func (repo *attainmentRepository) GetAuthor(ctx context.Context, id int, exec ...core.DBExecutor) (attainment.Author, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.getAuthor(id); ok {
		return a, nil
	}
	return attainment.Author{}, attainment.ErrAuthorNotFound
}

func (repo *attainmentRepository) UpdateAuthor(ctx context.Context, a attainment.Author, exec ...core.DBExecutor) (attainment.Author, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.authors[a.ID]
	if !ok {
		return attainment.Author{}, attainment.ErrAuthorNotFound
	}
	if err := repo.db.checkAuthorUniqueness(a); err != nil {
		return attainment.Author{}, err
	}
	stored.EmployeeID = copyInt(a.EmployeeID)
	stored.Alias = a.Alias

	author, _ := repo.db.getAuthor(a.ID)
	return author, nil
}

func (repo *attainmentRepository) DeleteAuthors(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.authors[id]; !ok {
			continue
		}
		delete(repo.db.authors, id)
		cnt++
		for _, c := range repo.db.contribs {
			if c.AuthorID == id {
				delete(repo.db.contribs, c.ID)
			}
		}
	}
	return cnt, nil
}

// Contributions

// getContribution fills the read-only fields of a contribution.
func (db *DB) getContribution(c *attainment.Contribution) attainment.Contribution {
	contrib := *c
	contrib.AuthorAlias = ""
	contrib.AuthorEmployeeID = nil
	if a, ok := db.authors[c.AuthorID]; ok {
		contrib.AuthorAlias = a.Alias
		contrib.AuthorEmployeeID = copyInt(a.EmployeeID)
	}
	return contrib
}

func (repo *attainmentRepository) CreateContribution(ctx context.Context, c attainment.Contribution, exec ...core.DBExecutor) (attainment.Contribution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.authors[c.AuthorID]; !ok {
		return attainment.Contribution{}, attainment.ErrAuthorNotFound
	}
	if c.ID == 0 {
		c.ID = repo.db.nextPK("contributions")
	} else {
		repo.db.usePK("contributions", c.ID)
	}
	stored := c
	repo.db.contribs[c.ID] = &stored
	return repo.db.getContribution(&stored), nil
}

func (repo *attainmentRepository) QueryContributions(ctx context.Context, filter *attainment.ContributionFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attainment.Contribution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]attainment.Contribution, 0, len(repo.db.contribs))
	for _, stored := range repo.db.contribs {
		c := repo.db.getContribution(stored)
		if filter != nil {
			if filter.Search != "" && !contains(c.AuthorAlias, filter.Search) {
				continue
			}
			if filter.Kind != "" && c.Kind != filter.Kind {
				continue
			}
			if filter.ObjectID != 0 && c.ObjectID != filter.ObjectID {
				continue
			}
			if filter.AuthorID != 0 && c.AuthorID != filter.AuthorID {
				continue
			}
		}
		list = append(list, c)
	}

	sortRows(list, ordering, map[string]comparator{
		"id":         func(i, j int) int { return cmpInt(list[i].ID, list[j].ID) },
		"order":      func(i, j int) int { return cmpInt(list[i].Order, list[j].Order) },
		"percentage": func(i, j int) int { return cmpInt(list[i].Percentage, list[j].Percentage) },
		"author":     func(i, j int) int { return cmpStr(list[i].AuthorAlias, list[j].AuthorAlias) },
	})
	return list, nil
}

func (repo *attainmentRepository) GetContribution(ctx context.Context, id int, exec ...core.DBExecutor) (attainment.Contribution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.contribs[id]; ok {
		return repo.db.getContribution(c), nil
	}
	return attainment.Contribution{}, attainment.ErrContributionNotFound
}

func (repo *attainmentRepository) UpdateContribution(ctx context.Context, c attainment.Contribution, exec ...core.DBExecutor) (attainment.Contribution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.contribs[c.ID]; !ok {
		return attainment.Contribution{}, attainment.ErrContributionNotFound
	}
	if _, ok := repo.db.authors[c.AuthorID]; !ok {
		return attainment.Contribution{}, attainment.ErrAuthorNotFound
	}
	stored := c
	repo.db.contribs[c.ID] = &stored
	return repo.db.getContribution(&stored), nil
}

func (repo *attainmentRepository) DeleteContributions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.contribs[id]; ok {
			delete(repo.db.contribs, id)
			cnt++
		}
	}
	return cnt, nil
}
