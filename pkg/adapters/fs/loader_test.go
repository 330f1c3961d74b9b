package fs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "_config.yml", "title: Test\n")
	writeFile(t, root, "_pages/index.html.tmpl", "---\ntitle: Home\n---\nhome\n")
	writeFile(t, root, "_pages/blog.tmpl", "---\ncollection: posts\npermalink: /blog/%basename/\n---\n{{ .this.title }}\n")
	writeFile(t, root, "_pages/books.tmpl", "---\ndataset: books\npermalink: /books/%basename/\n---\n{{ .this.name }}\n")
	writeFile(t, root, "_posts/hello-world.md", "---\ndate: 2017-03-04\n---\nHello\n")
	writeFile(t, root, "_posts/second.md", "---\ntitle: Second\npermalink: /custom/\n---\nSecond\n")
	writeFile(t, root, "_books/dune.json", `{"name": "Dune"}`)
	writeFile(t, root, "_books/notes.txt", "not data")
	writeFile(t, root, "_data/authors.yml", "ada: Ada Lovelace\n")
	writeFile(t, root, "_includes/nav.tmpl", "<nav></nav>")
	writeFile(t, root, "_layouts/base.tmpl", "{{ block \"content\" . }}{{ end }}")
	writeFile(t, root, "_site/stale.tmpl", "ignored")
	writeFile(t, root, ".stakx/manifest.json", "{}")
	writeFile(t, root, "drafts/wip.tmpl", "excluded")
	writeFile(t, root, "assets/app.css", "body {}")
	return root
}

func newTestLoader(t *testing.T, root string) *Loader {
	t.Helper()
	l, err := NewLoader(LoaderConfig{
		Root:        root,
		PageViews:   []string{"_pages"},
		Collections: []Folder{{Name: "posts", Folder: "_posts"}},
		Datasets:    []Folder{{Name: "books", Folder: "./_books/"}},
		Data:        []string{"_data"},
		Ignore:      []string{"_site", ".stakx"},
		Exclude:     []string{"drafts/**"},
		Logger:      discardLogger(),
	})
	require.NoError(t, err)
	return l
}

func TestLoaderRole(t *testing.T) {
	l := newTestLoader(t, t.TempDir())

	tests := []struct {
		path  string
		role  Role
		group string
	}{
		{"_pages/index.html.tmpl", RolePageView, ""},
		{"_posts/a.md", RoleCollectionItem, "posts"},
		{"_books/dune.json", RoleDatasetItem, "books"},
		{"_books/notes.txt", RoleIgnored, ""},
		{"_data/authors.yml", RoleData, ""},
		{"_includes/nav.tmpl", RolePartial, ""},
		{"_layouts/base.tmpl", RolePartial, ""},
		{"_site/index.tmpl", RoleIgnored, ""},
		{".stakx/x.tmpl", RoleIgnored, ""},
		{"drafts/deep/wip.tmpl", RoleIgnored, ""},
		{".git/HEAD", RoleIgnored, ""},
		{"assets/app.css", RoleIgnored, ""},
		{"./_pages/about.tmpl", RolePageView, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			role, group := l.Role(tt.path)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.group, group)
		})
	}
}

func TestLoaderLoad(t *testing.T) {
	root := newTestSite(t)
	l := newTestLoader(t, root)

	inv, err := l.Load(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(inv.PageViews))
	for _, pv := range inv.PageViews {
		paths = append(paths, pv.RelativePath())
	}
	assert.Equal(t, []string{"_pages/blog.tmpl", "_pages/books.tmpl", "_pages/index.html.tmpl"}, paths)

	require.Len(t, inv.Collections["posts"], 2)
	require.Len(t, inv.Datasets["books"], 1)
	require.Contains(t, inv.Data, "_data/authors.yml")
	assert.Len(t, inv.Partials, 2)

	t.Run("items are attached to dynamic pages", func(t *testing.T) {
		blog, ok := inv.PageViews[0].(*document.DynamicPageView)
		require.True(t, ok)
		require.Len(t, blog.Items(), 2)

		hello, ok := blog.Item("_posts/hello-world.md")
		require.True(t, ok)
		permalink, err := hello.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/blog/hello-world/", permalink)
		title, _ := hello.Get("title")
		assert.Equal(t, "Hello World", title)

		second, _ := blog.Item("_posts/second.md")
		permalink, err = second.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/custom/", permalink)

		books, ok := inv.PageViews[1].(*document.DynamicPageView)
		require.True(t, ok)
		require.Len(t, books.Items(), 1)
		name, _ := books.Items()[0].Get("name")
		assert.Equal(t, "Dune", name)
	})

	t.Run("data names", func(t *testing.T) {
		data := inv.DataNames()
		require.Contains(t, data, "authors")
		values, err := data["authors"].Data()
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", values["ada"])
	})

	t.Run("state", func(t *testing.T) {
		state, ok := l.State().(LoaderState)
		require.True(t, ok)
		assert.NotNil(t, state.LastLoad)
		assert.Equal(t, []string{"csv", "json", "yaml", "yml"}, state.Serializers)
		assert.Equal(t, "loader", l.ComponentType())
	})
}

func TestLoaderReportsBrokenDocuments(t *testing.T) {
	root := newTestSite(t)
	writeFile(t, root, "_pages/broken.tmpl", "no front matter here")
	l := newTestLoader(t, root)

	inv, err := l.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDocumentFormat)
	require.NotNil(t, inv)
	assert.Len(t, inv.PageViews, 3)
}

func TestLoaderReadFile(t *testing.T) {
	root := newTestSite(t)
	l := newTestLoader(t, root)

	entry, err := l.ReadFile("_posts/hello-world.md")
	require.NoError(t, err)
	assert.Equal(t, RoleCollectionItem, entry.Role)
	assert.IsType(t, &document.ContentItem{}, entry.File)

	entry, err = l.ReadFile("assets/app.css")
	require.NoError(t, err)
	assert.Equal(t, RoleIgnored, entry.Role)
	assert.Nil(t, entry.File)

	_, err = l.ReadFile("_pages/missing.tmpl")
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestNewLoaderRejectsBadPatterns(t *testing.T) {
	_, err := NewLoader(LoaderConfig{Root: t.TempDir(), Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}
