package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
)

const (
	pagesDir   = "templates/pages"
	layoutFile = "_layout.gohtml"
)

// page is what every page template is executed with.
type page struct {
	Title   string
	AppName string
	Path    string
	User    *user.User
	Data    echo.Map
}

func newPage(ctx echo.Context, title string, data echo.Map) page {
	p := page{
		Title: title,
		Path:  ctx.Request().URL.Path,
		Data:  data,
	}
	if claims, err := getContextClaims(ctx); err == nil {
		usr := claims.User()
		p.User = &usr
	}
	return p
}

var pageFuncs = template.FuncMap{
	"tierLabel": func(t tier.Tier) string { return tier.Required(t).Label() },
	"duration": func(seconds float64) string {
		s := int(seconds)
		return fmt.Sprintf("%d:%02d", s/60, s%60)
	},
	"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
	"ratio": func(done, total int) int {
		if total <= 0 {
			return 0
		}
		return done * 100 / total
	},
}

// renderer executes the page templates. Each page defines "content" and wraps itself in the layout.
type renderer struct {
	appName string
	pages   map[string]*template.Template
}

func newRenderer(conf *core.Config) *renderer {
	pages, err := parsePages(appfs.FS)
	if err != nil {
		panic(err)
	}
	return &renderer{appName: conf.AppName, pages: pages}
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, path.Join(pagesDir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing page templates")
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		base := path.Base(file)
		if base == layoutFile {
			continue
		}
		// the page file is parsed first so that it is the root template
		tmpl, err := template.New(base).Funcs(pageFuncs).ParseFS(fsys, file, path.Join(pagesDir, layoutFile))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing page %s", base)
		}
		pages[strings.TrimSuffix(base, ".gohtml")] = tmpl
	}
	return pages, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("page template %q not found", name)
	}
	if p, ok := data.(page); ok {
		p.AppName = r.appName
		data = p
	}
	return tmpl.Execute(w, data)
}
