package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/user"
)

// loadUsers creates the users of a workbook sheet, reporting the rows it skipped.
func (cli *commandLine) loadUsers(path, sheet string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := user.ReadWorkbook(f, sheet)
	if err != nil {
		return err
	}
	report, err := cli.usrSvc.Import(context.Background(), records)
	for _, failure := range report.Failed {
		fmt.Fprintf(cli.out, "row %d: %s\n", failure.Row, failure.Reason)
	}
	fmt.Fprintf(cli.out, "%d user(s) created, %d skipped\n", len(report.Created), len(report.Failed))
	return err
}

func (cli *commandLine) writeFixtures(path string, apps []string, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fixtures, err := fixture.ReadWorkbook(f, apps)
	if err != nil {
		return err
	}
	paths, err := fixture.WriteFiles(dir, fixtures)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(cli.out, "wrote %s\n", p)
	}
	return nil
}

// loadData loads every fixture file at once so that cross-file references resolve.
func (cli *commandLine) loadData(paths []string) error {
	var objs []fixture.Object
	for _, p := range paths {
		fileObjs, err := decodeFixtureFile(p)
		if err != nil {
			return err
		}
		objs = append(objs, fileObjs...)
	}

	n, err := cli.fixtureSvc.Load(context.Background(), objs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Installed %d object(s) from %d fixture(s)\n", n, len(paths))
	return nil
}

func decodeFixtureFile(path string) ([]fixture.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	objs, err := fixture.Decode(f)
	return objs, errors.Wrap(err, path)
}
