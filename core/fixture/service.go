package fixture

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
)

type (
	Repository interface {
		// SaveObject inserts obj into the table of m or, when its pk is taken, updates the row.
		SaveObject(ctx context.Context, m Model, obj Object, exec ...core.DBExecutor) error
		// ResetSequences moves the ID sequences of tables past the loaded primary keys.
		ResetSequences(ctx context.Context, tables []string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Load saves objs in a single transaction and returns the number of objects saved.
		Load(ctx context.Context, objs []Object) (int, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{db: db, repo: repo}
}

// Decode reads a JSON fixture file.
func Decode(r io.Reader) ([]Object, error) {
	var objs []Object
	if err := json.NewDecoder(r).Decode(&objs); err != nil {
		return nil, errors.Wrap(err, "decoding fixtures")
	}
	return objs, nil
}

func (svc *service) Load(ctx context.Context, objs []Object) (int, error) {
	if err := Check(objs); err != nil {
		return 0, err
	}
	sorted := append([]Object(nil), objs...)
	sortForLoading(sorted)

	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		tables := make([]string, 0, len(Models))
		seen := make(map[string]bool, len(Models))
		for _, obj := range sorted {
			m := Models[obj.Model]
			if err := svc.repo.SaveObject(ctx, m, obj, exec); err != nil {
				return errors.Wrapf(err, "saving %s (pk=%d)", obj.Model, obj.PK)
			}
			if !seen[m.Table] {
				seen[m.Table] = true
				tables = append(tables, m.Table)
			}
		}
		return svc.repo.ResetSequences(ctx, tables, exec)
	})
	if err != nil {
		return 0, err
	}
	return len(sorted), nil
}
