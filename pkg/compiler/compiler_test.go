package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
	"github.com/PeterMedina/stakx/pkg/metrics"
	"github.com/PeterMedina/stakx/pkg/templating"
	"github.com/PeterMedina/stakx/pkg/templating/gotmpl"
	"github.com/PeterMedina/stakx/pkg/tracker"
)

type memWriter struct {
	mu     sync.Mutex
	files  map[string]string
	writes []string
}

func newMemWriter() *memWriter {
	return &memWriter{files: map[string]string{}}
}

func (m *memWriter) Write(target, source string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[target] = string(content)
	m.writes = append(m.writes, target)
	return nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

type fixture struct {
	root    string
	opts    document.Options
	writer  *memWriter
	tracker *tracker.Tracker
	comp    *Compiler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:    root,
		opts:    document.Options{Root: root},
		writer:  newMemWriter(),
		tracker: tracker.New("tmpl"),
	}
	opts.Dependencies = f.tracker
	f.comp = New(gotmpl.New(root), f.writer, opts)
	return f
}

func (f *fixture) pageView(t *testing.T, rel, content string) document.PageView {
	t.Helper()
	writeFile(t, f.root, rel, content)
	pv, err := document.ReadPageView(rel, f.opts)
	require.NoError(t, err)
	f.tracker.RegisterFile(pv)
	f.comp.AddPageView(pv)
	return pv
}

func TestCompileStatic(t *testing.T) {
	f := newFixture(t, Options{})
	f.pageView(t, "_pages/about.html.tmpl", "---\ntitle: About\nredirects: [/about-us/]\n---\n<h1>{{ .this.title }}</h1>")

	require.NoError(t, f.comp.CompileAll())
	assert.Equal(t, "<h1>About</h1>", f.writer.files["about.html"])

	redirect, ok := f.writer.files["about-us/index.html"]
	require.True(t, ok)
	assert.Contains(t, redirect, `url=about.html`)
}

func TestCompileDynamicSkipsDrafts(t *testing.T) {
	tests := []struct {
		name   string
		drafts bool
		writes int
	}{
		{"drafts disabled", false, 2},
		{"drafts enabled", true, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Drafts: tc.drafts})
			pv := f.pageView(t, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /blog/%basename/\n---\n<article>{{ .this.title }}: {{ .this.content }}</article>")
			dynamic := pv.(*document.DynamicPageView)

			for i, body := range []string{"---\ntitle: One\n---\none", "---\ntitle: Two\ndraft: true\n---\ntwo", "---\ntitle: Three\n---\nthree"} {
				rel := filepath.ToSlash(filepath.Join("_posts", []string{"one.md", "two.md", "three.md"}[i]))
				writeFile(t, f.root, rel, body)
				item, err := document.ReadContentItem(rel, f.opts, nil)
				require.NoError(t, err)
				require.NoError(t, dynamic.AddItem(item))
			}

			require.NoError(t, f.comp.CompileAll())
			assert.Len(t, f.writer.writes, tc.writes)
			assert.Equal(t, "<article>One: one</article>", f.writer.files["blog/one/index.html"])
			_, wroteDraft := f.writer.files["blog/two/index.html"]
			assert.Equal(t, tc.drafts, wroteDraft)
		})
	}
}

func TestCompileRepeaterRedirectPairs(t *testing.T) {
	f := newFixture(t, Options{RedirectTemplate: "{{ .this.redirect_from }}->{{ .this.redirect_to }}"})
	f.pageView(t, "_pages/letters.tmpl", strings.Join([]string{
		"---",
		"letter: [a, b]",
		"permalink: /%letter",
		"redirects: [\"/%letter-old\"]",
		"---",
		"letter {{ .this.iterators.letter }} at {{ .this.permalink }}",
	}, "\n"))

	require.NoError(t, f.comp.CompileAll())

	assert.Equal(t, "letter a at /a", f.writer.files["a/index.html"])
	assert.Equal(t, "letter b at /b", f.writer.files["b/index.html"])
	assert.Equal(t, "/a-old->/a", f.writer.files["a-old/index.html"])
	assert.Equal(t, "/b-old->/b", f.writer.files["b-old/index.html"])
	assert.Equal(t, []string{"a/index.html", "b/index.html", "a-old/index.html", "b-old/index.html"}, f.writer.writes)

	t.Run("compiling again rewinds the cursor", func(t *testing.T) {
		f.writer.writes = nil
		require.NoError(t, f.comp.RecompilePageView("_pages/letters.tmpl"))
		assert.Len(t, f.writer.writes, 4)
	})
}

type writeCounter struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	pages     map[string]int
	redirects int
}

func (w *writeCounter) IncPagesWritten(kind string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[kind]++
}

func (w *writeCounter) IncRedirectsWritten() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.redirects++
}

func TestCompileCountsRedirectsApart(t *testing.T) {
	rec := &writeCounter{pages: map[string]int{}}
	f := newFixture(t, Options{Recorder: rec})
	f.pageView(t, "_pages/about.html.tmpl", "---\nredirects: [/about-us/, /company/]\n---\nabout")

	require.NoError(t, f.comp.CompileAll())
	assert.Len(t, f.writer.writes, 3)
	assert.Equal(t, map[string]int{"static": 1}, rec.pages)
	assert.Equal(t, 2, rec.redirects)
}

func TestCompileDynamicPageRedirects(t *testing.T) {
	addItem := func(t *testing.T, f *fixture, pv document.PageView) {
		t.Helper()
		writeFile(t, f.root, "_posts/one.md", "---\ntitle: One\n---\none")
		item, err := document.ReadContentItem("_posts/one.md", f.opts, nil)
		require.NoError(t, err)
		require.NoError(t, pv.(*document.DynamicPageView).AddItem(item))
	}

	t.Run("fixed permalink", func(t *testing.T) {
		f := newFixture(t, Options{})
		pv := f.pageView(t, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /blog/\nredirects: [/old-blog/]\n---\n{{ .this.title }}")
		addItem(t, f, pv)

		require.NoError(t, f.comp.CompileAll())
		redirect, ok := f.writer.files["old-blog/index.html"]
		require.True(t, ok)
		assert.Contains(t, redirect, "blog/")
	})

	t.Run("pattern permalink", func(t *testing.T) {
		f := newFixture(t, Options{})
		pv := f.pageView(t, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /blog/%basename/\nredirects: [/old-blog/]\n---\n{{ .this.title }}")
		addItem(t, f, pv)

		require.NoError(t, f.comp.CompileAll())
		assert.Equal(t, []string{"blog/one/index.html"}, f.writer.writes)
	})
}

func TestPartialDependents(t *testing.T) {
	f := newFixture(t, Options{})
	writeFile(t, f.root, "_includes/nav.tmpl", "<nav/>")
	writeFile(t, f.root, "_includes/lonely.tmpl", "<aside/>")
	f.tracker.RegisterFile(document.NewFile("_includes/lonely.tmpl"))

	f.pageView(t, "_pages/a.html.tmpl", "---\ntitle: A\n---\n{{ template \"_includes/nav.tmpl\" . }}A")
	f.pageView(t, "_pages/b.html.tmpl", "---\ntitle: B\n---\n{{ template \"_includes/nav.tmpl\" . }}B")
	f.pageView(t, "_pages/c.html.tmpl", "---\ntitle: C\n---\nC")

	require.NoError(t, f.comp.CompileAll())

	recompile := func(path string) int {
		f.writer.writes = nil
		route := f.tracker.Route(path)
		require.Equal(t, tracker.ActionRecompileDependents, route.Action)
		for _, target := range route.Targets {
			require.NoError(t, f.comp.RecompilePageView(target))
		}
		return len(f.writer.writes)
	}

	writeFile(t, f.root, "_includes/nav.tmpl", "<nav>v2</nav>")
	assert.Equal(t, 2, recompile("_includes/nav.tmpl"))
	assert.Equal(t, "<nav>v2</nav>A", f.writer.files["a.html"])
	assert.Equal(t, 0, recompile("_includes/lonely.tmpl"))
}

func TestRenderHooks(t *testing.T) {
	var seen []core.PageKind
	f := newFixture(t, Options{
		Hooks: Hooks{
			PreRender: []PreRenderFunc{
				func(kind core.PageKind) map[string]any {
					seen = append(seen, kind)
					return map[string]any{"site": map[string]any{"title": "Demo"}, "this": "shadowed"}
				},
			},
			PostRender: []PostRenderFunc{
				func(kind core.PageKind, output string) string { return strings.ToUpper(output) },
				func(kind core.PageKind, output string) string { return output + "!" },
			},
		},
	})
	f.pageView(t, "_pages/index.html.tmpl", "---\ntitle: home\n---\n{{ .site.title }} {{ .this.title }}")

	require.NoError(t, f.comp.CompileAll())
	assert.Equal(t, "DEMO HOME!", f.writer.files["index.html"])
	assert.Equal(t, []core.PageKind{core.PageStatic}, seen)
}

func TestTemplateErrors(t *testing.T) {
	t.Run("line numbers are expressed in the source file", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.pageView(t, "_pages/broken.tmpl", "---\ntitle: x\n---\nline one\n{{ .this.title.nope }}\n")

		err := f.comp.CompileAll()
		require.ErrorIs(t, err, core.ErrTemplateRender)

		var renderErr *core.TemplateRenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, "_pages/broken.tmpl", renderErr.Path)
		assert.Equal(t, 5, renderErr.Line)
	})

	t.Run("construction failures are wrapped", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.pageView(t, "_pages/bad.tmpl", "---\ntitle: x\n---\n\n{{ if }}\n")

		var renderErr *core.TemplateRenderError
		require.True(t, errors.As(f.comp.CompileAll(), &renderErr))
		assert.Equal(t, 5, renderErr.Line)
	})

	t.Run("a failing page does not stop the others", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.pageView(t, "_pages/bad.tmpl", "---\ntitle: x\n---\n{{ .this.title.nope }}")
		f.pageView(t, "_pages/good.tmpl", "---\ntitle: x\n---\ngood")

		assert.Error(t, f.comp.CompileAll())
		assert.Equal(t, "good", f.writer.files["good/index.html"])
	})
}

type stubBridge struct {
	err error
}

func (s stubBridge) CreateTemplate(string) (templating.Template, error) {
	return nil, s.err
}

func TestErrorFromPartialKeepsPagePath(t *testing.T) {
	writer := newMemWriter()
	comp := New(stubBridge{err: &templating.Error{Template: "__x", Partial: "_includes/nav.tmpl", Line: 7, Err: errors.New("boom")}}, writer, Options{})

	root := t.TempDir()
	writeFile(t, root, "_pages/p.tmpl", "---\ntitle: x\n---\nbody")
	pv, err := document.ReadPageView("_pages/p.tmpl", document.Options{Root: root})
	require.NoError(t, err)
	comp.AddPageView(pv)

	var renderErr *core.TemplateRenderError
	require.True(t, errors.As(comp.CompileAll(), &renderErr))
	assert.Equal(t, "_pages/p.tmpl", renderErr.Path)
	assert.Zero(t, renderErr.Line)
	assert.Contains(t, renderErr.Error(), "_includes/nav.tmpl:7")
}

func TestRecompile(t *testing.T) {
	f := newFixture(t, Options{})
	f.pageView(t, "_pages/index.html.tmpl", "---\ntitle: v1\n---\n{{ .this.title }}")
	pv := f.pageView(t, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /posts/%basename/\n---\n{{ .this.title }}")

	writeFile(t, f.root, "_posts/hello.md", "---\ntitle: Hello\n---\nhi")
	item, err := document.ReadContentItem("_posts/hello.md", f.opts, nil)
	require.NoError(t, err)
	require.NoError(t, pv.(*document.DynamicPageView).AddItem(item))

	require.NoError(t, f.comp.CompileAll())
	assert.Equal(t, "v1", f.writer.files["index.html"])
	assert.NotEmpty(t, f.comp.TemplateMapping())

	t.Run("page view picks up edits", func(t *testing.T) {
		writeFile(t, f.root, "_pages/index.html.tmpl", "---\ntitle: v2\n---\n{{ .this.title }}")
		require.NoError(t, f.comp.RecompilePageView("_pages/index.html.tmpl"))
		assert.Equal(t, "v2", f.writer.files["index.html"])
	})

	t.Run("untracked page view", func(t *testing.T) {
		assert.ErrorIs(t, f.comp.RecompilePageView("_pages/nope.tmpl"), core.ErrUntrackedPath)
	})

	t.Run("collectable item", func(t *testing.T) {
		writeFile(t, f.root, "_posts/hello.md", "---\ntitle: Hello again\n---\nhi")
		f.writer.writes = nil

		found, err := f.comp.RecompileCollectableItem("_posts/hello.md")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"posts/hello/index.html"}, f.writer.writes)
		assert.Equal(t, "Hello again", f.writer.files["posts/hello/index.html"])

		found, err = f.comp.RecompileCollectableItem("_posts/unknown.md")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
