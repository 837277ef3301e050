package core

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/dorobek/fs"
)

func TestParseEmailTemplates(t *testing.T) {
	conf := &Config{TestMode: true, FrontendBaseURL: "http://localhost:3000"}

	t.Run("missing layout", func(t *testing.T) {
		fsys := fstest.MapFS{
			"email/welcome.txt": {Data: []byte(`{{define "content"}}Hi{{end}}`)},
		}
		err := ParseEmailTemplates(conf, fsys, "email")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing email template email/welcome.txt")
	})

	t.Run("empty dir", func(t *testing.T) {
		assert.Error(t, ParseEmailTemplates(conf, fstest.MapFS{}, "email"))
	})

	t.Run("embedded templates", func(t *testing.T) {
		require.NoError(t, ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir))

		msg := &EmailMessage{
			To:           []mail.Address{{Address: "jdoe@test.cd"}},
			TemplateName: "password_reset",
			TemplateData: map[string]interface{}{"Name": "John", "Username": "jdoe", "UID": "MQ", "Token": "abc-123"},
		}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "Hello John,")
		assert.Contains(t, msg.TextContent, "http://localhost:3000/password-reset/MQ/abc-123")
		assert.Contains(t, msg.TextContent, "--\nhttp://localhost:3000")
		assert.Contains(t, msg.HTMLContent, "John")

		msg = &EmailMessage{TemplateName: "employees_export", TemplateData: map[string]interface{}{"Date": "2021-01-31", "Count": 3}}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "exported on 2021-01-31 is attached (3 employees)")
		assert.Empty(t, msg.HTMLContent)
	})
}
