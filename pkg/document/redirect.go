package document

import (
	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/frontmatter"
)

// NewRedirect builds an in-memory static page served at from that points the
// visitor to to. The template receives `redirect_from` and `redirect_to`.
func NewRedirect(from, to, template, templateExt string) *StaticPageView {
	from = frontmatter.Sanitize(from, templateExt)
	fm := core.FrontMatter{
		"permalink":     from,
		"redirect_from": from,
		"redirect_to":   to,
	}
	return &StaticPageView{Document: NewVirtual(from, fm, template, templateExt)}
}
