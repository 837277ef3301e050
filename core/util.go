package core

import (
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ColumnName normalizes a spreadsheet header to a snake_case column name:
// "First Name", "first-name" & "FirstName" all give "first_name".
func ColumnName(header string) string {
	var b strings.Builder
	var prev rune
	for _, r := range strings.TrimSpace(header) {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			if prev != '_' && b.Len() > 0 {
				b.WriteRune('_')
				prev = '_'
			}
			continue
		}
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteRune('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return strings.TrimSuffix(b.String(), "_")
}

// TruncateWords keeps the first n words of s, appending an ellipsis when anything was cut.
// s is returned untouched when it has n words or less.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if n < 0 || len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "…"
}

// StripTags removes every HTML tag from s and unescapes the remaining entities.
func StripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// RenderLink renders an anchor tag; href, class and content are escaped.
func RenderLink(href, content, class string) string {
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteString(`"`)
	if class != "" {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(class))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(content))
	b.WriteString("</a>")
	return b.String()
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			// not run from the source tree (e.g. deployed binary)
			return wd
		}
		currDir = newDir
	}
}
