package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportEmployees writes the employees listing to path & mails it to email when set.
func (cli *commandLine) exportEmployees(path, email string) error {
	var to *mail.Address
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return errors.Wrap(err, "invalid email")
		}
		to = addr
	}

	var buf bytes.Buffer
	n, err := cli.empSvc.Export(context.Background(), &employee.QueryFilter{}, nil, &buf)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	fmt.Fprintf(cli.out, "%d employee(s) exported to %s\n", n, path)

	if to == nil {
		return nil
	}
	return cli.mailExport(*to, filepath.Base(path), &buf, n)
}

func (cli *commandLine) mailExport(to mail.Address, filename string, r io.Reader, count int) error {
	today := time.Now().UTC().Format("2006-01-02")
	msg := &core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Employees register " + today,
		TemplateName: "employees_export",
		TemplateData: map[string]interface{}{
			"Date":  today,
			"Count": count,
		},
	}
	if err := msg.Attach(r, filename, xlsxContentType); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	cli.mailSvc.SendMessages(msg)
	cli.mailSvc.Wait()
	fmt.Fprintf(cli.out, "export mailed to %s\n", to.Address)
	return nil
}
