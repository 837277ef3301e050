package attainment

import (
	"strings"

	"github.com/trezcool/dorobek/core"
)

const authorsSeparator = "; "

// AuthorsList renders the authors of contribs, expected ordered by Contribution.Order.
// In HTML each author links to its page, with the class "employee" or "author";
// otherwise the aliases are merely joined.
func AuthorsList(contribs []Contribution, html bool) string {
	authors := make([]string, 0, len(contribs))
	for _, c := range contribs {
		if !html {
			authors = append(authors, c.AuthorAlias)
			continue
		}
		class := "author"
		if c.ByEmployee() {
			class = "employee"
		}
		authors = append(authors, core.RenderLink(AuthorURL(c.AuthorID), c.AuthorAlias, class))
	}
	return strings.Join(authors, authorsSeparator)
}

// OnlyByEmployees reports whether every contribution comes from an employee.
func OnlyByEmployees(contribs []Contribution) bool {
	for _, c := range contribs {
		if !c.ByEmployee() {
			return false
		}
	}
	return true
}
