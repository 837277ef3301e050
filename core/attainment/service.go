package attainment

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
)

var (
	// errors
	ErrNotFound             = errors.New("attainment not found")
	ErrAuthorNotFound       = errors.New("author not found")
	ErrAuthorExists         = errors.New("an author with this alias and employee already exists")
	ErrContributionNotFound = errors.New("contribution not found")
)

var byOrder = []core.DBOrdering{{Field: "order", Ascending: true}}

type (
	Repository interface {
		CreateAttainment(ctx context.Context, a Attainment, exec ...core.DBExecutor) (Attainment, error)
		QueryAttainments(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attainment, error)
		GetAttainment(ctx context.Context, kind Kind, id int, exec ...core.DBExecutor) (Attainment, error)
		// UpdateAttainment saves both the title & the authors list.
		UpdateAttainment(ctx context.Context, a Attainment, exec ...core.DBExecutor) (Attainment, error)
		// DeleteAttainments deletes the attainments & the contributions pointing to them.
		DeleteAttainments(ctx context.Context, kind Kind, ids []int, exec ...core.DBExecutor) (int, error)

		// CreateAuthor & UpdateAuthor return ErrAuthorExists on unique constraint violations.
		CreateAuthor(ctx context.Context, a Author, exec ...core.DBExecutor) (Author, error)
		QueryAuthors(ctx context.Context, filter *AuthorFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Author, error)
		GetAuthor(ctx context.Context, id int, exec ...core.DBExecutor) (Author, error)
		UpdateAuthor(ctx context.Context, a Author, exec ...core.DBExecutor) (Author, error)
		// DeleteAuthors deletes the authors & their contributions.
		DeleteAuthors(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)

		CreateContribution(ctx context.Context, c Contribution, exec ...core.DBExecutor) (Contribution, error)
		// QueryContributions breaks ordering ties by ID.
		QueryContributions(ctx context.Context, filter *ContributionFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Contribution, error)
		GetContribution(ctx context.Context, id int, exec ...core.DBExecutor) (Contribution, error)
		UpdateContribution(ctx context.Context, c Contribution, exec ...core.DBExecutor) (Contribution, error)
		DeleteContributions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, kind Kind, na NewAttainment) (Attainment, error)
		Query(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering) ([]Attainment, error)
		GetByID(ctx context.Context, kind Kind, id int) (Attainment, error)
		GetDetail(ctx context.Context, kind Kind, id int) (Detail, error)
		Update(ctx context.Context, a Attainment, ua UpdateAttainment) (Attainment, error)
		Delete(ctx context.Context, kind Kind, ids ...int) error

		CreateAuthor(ctx context.Context, na NewAuthor) (Author, error)
		QueryAuthors(ctx context.Context, filter *AuthorFilter, ordering []core.DBOrdering) ([]Author, error)
		GetAuthor(ctx context.Context, id int) (Author, error)
		// UpdateAuthor & DeleteAuthors resynchronize the authors list of the attainments the authors contributed to.
		UpdateAuthor(ctx context.Context, a Author, ua UpdateAuthor) (Author, error)
		DeleteAuthors(ctx context.Context, ids ...int) error

		// Every contribution change resynchronizes the authors list of the attainments involved,
		// within the same transaction.
		CreateContribution(ctx context.Context, nc NewContribution) (Contribution, error)
		QueryContributions(ctx context.Context, filter *ContributionFilter, ordering []core.DBOrdering) ([]Contribution, error)
		GetContribution(ctx context.Context, id int) (Contribution, error)
		UpdateContribution(ctx context.Context, c Contribution, uc UpdateContribution) (Contribution, error)
		DeleteContributions(ctx context.Context, ids ...int) error

		// SyncAuthorsList recomputes the authors list of an attainment out of its contributions.
		// Nothing happens if the attainment does not exist.
		SyncAuthorsList(ctx context.Context, kind Kind, id int) error
	}

	service struct {
		db     core.DB
		repo   Repository
		empSvc employee.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, empSvc employee.Service) Service {
	return &service{
		db:     db,
		repo:   repo,
		empSvc: empSvc,
	}
}

// Attainments

func (svc *service) Create(ctx context.Context, kind Kind, na NewAttainment) (Attainment, error) {
	if !kind.Valid() {
		return Attainment{}, &KindError{Kind: string(kind)}
	}
	return svc.repo.CreateAttainment(ctx, Attainment{Kind: kind, Title: na.Title})
}

func (svc *service) Query(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering) ([]Attainment, error) {
	if !kind.Valid() {
		return nil, &KindError{Kind: string(kind)}
	}
	return svc.repo.QueryAttainments(ctx, kind, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, kind Kind, id int) (Attainment, error) {
	if !kind.Valid() {
		return Attainment{}, &KindError{Kind: string(kind)}
	}
	return svc.repo.GetAttainment(ctx, kind, id)
}

func (svc *service) GetDetail(ctx context.Context, kind Kind, id int) (Detail, error) {
	a, err := svc.GetByID(ctx, kind, id)
	if err != nil {
		return Detail{}, err
	}
	contribs, err := svc.repo.QueryContributions(ctx, &ContributionFilter{Kind: kind, ObjectID: id}, byOrder)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying contributions")
	}
	d := Detail{
		Attainment:      a,
		Contributions:   contribs,
		OnlyByEmployees: OnlyByEmployees(contribs),
	}
	if !d.OnlyByEmployees {
		d.AuthorsHint = NotOnlyByEmployeesHint
	}
	return d, nil
}

// Update expects ua to have been validated. The authors list is left untouched.
func (svc *service) Update(ctx context.Context, a Attainment, ua UpdateAttainment) (Attainment, error) {
	if ua.Title != nil {
		a.Title = *ua.Title
	}
	var updated Attainment
	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		curr, err := svc.repo.GetAttainment(ctx, a.Kind, a.ID, exec)
		if err != nil {
			return err
		}
		curr.Title = a.Title
		updated, err = svc.repo.UpdateAttainment(ctx, curr, exec)
		return err
	})
	return updated, err
}

func (svc *service) Delete(ctx context.Context, kind Kind, ids ...int) error {
	if !kind.Valid() {
		return &KindError{Kind: string(kind)}
	}
	if len(ids) == 0 {
		return nil
	}
	return svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		_, err := svc.repo.DeleteAttainments(ctx, kind, ids, exec)
		return err
	})
}

// Authors

func (svc *service) CreateAuthor(ctx context.Context, na NewAuthor) (Author, error) {
	a, err := svc.repo.CreateAuthor(ctx, Author{EmployeeID: na.EmployeeID, Alias: na.Alias})
	if err != nil {
		return Author{}, authorExistsErr(err)
	}
	return svc.GetAuthor(ctx, a.ID)
}

func (svc *service) QueryAuthors(ctx context.Context, filter *AuthorFilter, ordering []core.DBOrdering) ([]Author, error) {
	return svc.repo.QueryAuthors(ctx, filter, core.FilterOrdering(ordering, AuthorOrderingFields...))
}

func (svc *service) GetAuthor(ctx context.Context, id int) (Author, error) {
	return svc.repo.GetAuthor(ctx, id)
}

// UpdateAuthor expects ua to have been validated against a.
func (svc *service) UpdateAuthor(ctx context.Context, a Author, ua UpdateAuthor) (Author, error) {
	a.EmployeeID = ua.EmployeeID
	if ua.Alias != nil {
		a.Alias = *ua.Alias
	}
	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateAuthor(ctx, a, exec); err != nil {
			return authorExistsErr(err)
		}
		targets, err := svc.authorTargets(ctx, []int{a.ID}, exec)
		if err != nil {
			return err
		}
		return svc.syncTargets(ctx, targets, exec)
	})
	if err != nil {
		return Author{}, err
	}
	return svc.GetAuthor(ctx, a.ID)
}

func (svc *service) DeleteAuthors(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		targets, err := svc.authorTargets(ctx, ids, exec)
		if err != nil {
			return err
		}
		if _, err = svc.repo.DeleteAuthors(ctx, ids, exec); err != nil {
			return err
		}
		return svc.syncTargets(ctx, targets, exec)
	})
}

// authorTargets lists the attainments the authors contributed to.
func (svc *service) authorTargets(ctx context.Context, authorIDs []int, exec core.DBExecutor) ([]target, error) {
	var contribs []Contribution
	for _, id := range authorIDs {
		cs, err := svc.repo.QueryContributions(ctx, &ContributionFilter{AuthorID: id}, nil, exec)
		if err != nil {
			return nil, errors.Wrap(err, "querying author contributions")
		}
		contribs = append(contribs, cs...)
	}
	targets := make([]target, 0, len(contribs))
	for _, c := range contribs {
		targets = append(targets, c.target())
	}
	return targets, nil
}

func authorExistsErr(err error) error {
	if errors.Cause(err) == ErrAuthorExists {
		return core.NewValidationError(err, core.FieldError{Field: "alias", Error: ErrAuthorExists.Error()})
	}
	return err
}

// Contributions

func (svc *service) CreateContribution(ctx context.Context, nc NewContribution) (Contribution, error) {
	c := Contribution{
		Kind:       Kind(nc.Kind),
		ObjectID:   nc.ObjectID,
		Order:      1,
		AuthorID:   nc.AuthorID,
		Percentage: 0,
	}
	if nc.Order != nil {
		c.Order = *nc.Order
	}
	if nc.Percentage != nil {
		c.Percentage = *nc.Percentage
	}
	if !c.Kind.Valid() {
		return Contribution{}, &KindError{Kind: nc.Kind}
	}

	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.CreateContribution(ctx, c, exec); err != nil {
			return err
		}
		return svc.syncAuthorsList(ctx, c.target(), exec)
	})
	if err != nil {
		return Contribution{}, err
	}
	return svc.GetContribution(ctx, c.ID)
}

func (svc *service) QueryContributions(ctx context.Context, filter *ContributionFilter, ordering []core.DBOrdering) ([]Contribution, error) {
	return svc.repo.QueryContributions(ctx, filter, core.FilterOrdering(ordering, ContributionOrderingFields...))
}

func (svc *service) GetContribution(ctx context.Context, id int) (Contribution, error) {
	return svc.repo.GetContribution(ctx, id)
}

// UpdateContribution expects uc to have been validated.
// Both the previous & the new target attainments are resynchronized.
func (svc *service) UpdateContribution(ctx context.Context, c Contribution, uc UpdateContribution) (Contribution, error) {
	prev := c.target()
	if uc.Kind != nil {
		c.Kind = Kind(*uc.Kind)
	}
	if uc.ObjectID != nil {
		c.ObjectID = *uc.ObjectID
	}
	if uc.Order != nil {
		c.Order = *uc.Order
	}
	if uc.AuthorID != nil {
		c.AuthorID = *uc.AuthorID
	}
	if uc.Percentage != nil {
		c.Percentage = *uc.Percentage
	}
	if !c.Kind.Valid() {
		return Contribution{}, &KindError{Kind: string(c.Kind)}
	}

	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateContribution(ctx, c, exec); err != nil {
			return err
		}
		return svc.syncTargets(ctx, []target{prev, c.target()}, exec)
	})
	if err != nil {
		return Contribution{}, err
	}
	return svc.GetContribution(ctx, c.ID)
}

func (svc *service) DeleteContributions(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		targets := make([]target, 0, len(ids))
		for _, id := range ids {
			c, err := svc.repo.GetContribution(ctx, id, exec)
			if err != nil {
				if errors.Cause(err) == ErrContributionNotFound {
					continue
				}
				return err
			}
			targets = append(targets, c.target())
		}
		if _, err := svc.repo.DeleteContributions(ctx, ids, exec); err != nil {
			return err
		}
		return svc.syncTargets(ctx, targets, exec)
	})
}

// Synchronization

func (svc *service) SyncAuthorsList(ctx context.Context, kind Kind, id int) error {
	return svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		return svc.syncAuthorsList(ctx, target{kind: kind, objectID: id}, exec)
	})
}

// syncTargets resynchronizes each distinct target once.
func (svc *service) syncTargets(ctx context.Context, targets []target, exec core.DBExecutor) error {
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].kind != targets[j].kind {
			return targets[i].kind < targets[j].kind
		}
		return targets[i].objectID < targets[j].objectID
	})
	for i, t := range targets {
		if i > 0 && t == targets[i-1] {
			continue
		}
		if err := svc.syncAuthorsList(ctx, t, exec); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) syncAuthorsList(ctx context.Context, t target, exec core.DBExecutor) error {
	if !t.kind.Valid() {
		return &KindError{Kind: string(t.kind)}
	}
	a, err := svc.repo.GetAttainment(ctx, t.kind, t.objectID, exec)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "getting attainment")
	}
	contribs, err := svc.repo.QueryContributions(ctx, &ContributionFilter{Kind: t.kind, ObjectID: t.objectID}, byOrder, exec)
	if err != nil {
		return errors.Wrap(err, "querying contributions")
	}
	a.AuthorsList = AuthorsList(contribs, true)
	_, err = svc.repo.UpdateAttainment(ctx, a, exec)
	return errors.Wrap(err, "updating authors list")
}
