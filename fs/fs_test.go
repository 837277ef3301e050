package appfs

import (
	"io/fs"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFS(t *testing.T) {
	for _, name := range []string{
		path.Join(EmailTemplatesDir, "_base.txt"),
		path.Join(EmailTemplatesDir, "_base.gohtml"),
		path.Join(EmailTemplatesDir, "password_reset.txt"),
		path.Join(EmailTemplatesDir, "password_reset.gohtml"),
		path.Join(EmailTemplatesDir, "employees_export.txt"),
		path.Join(MigrationsDir, "00001_users.sql"),
		CommonPasswords,
	} {
		_, err := fs.Stat(FS, name)
		assert.NoError(t, err, name)
	}
}
