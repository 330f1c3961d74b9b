package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMedina/stakx/pkg/core"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

type upperRenderer struct{ calls int }

func (u *upperRenderer) Render(src string) (string, error) {
	u.calls++
	return strings.ToUpper(src), nil
}

func TestPermalinkDerivation(t *testing.T) {
	root := t.TempDir()
	opts := Options{Root: root}

	t.Run("derived from the path", func(t *testing.T) {
		writeFile(t, root, "_pages/about.html.tmpl", "---\ntitle: About\n---\n<h1>{{ .this.title }}</h1>\n")
		doc, err := Read("_pages/about.html.tmpl", opts)
		require.NoError(t, err)

		permalink, err := doc.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "about.html", permalink)

		target, err := doc.TargetFile()
		require.NoError(t, err)
		assert.Equal(t, "about.html", target)
	})

	t.Run("explicit permalink", func(t *testing.T) {
		writeFile(t, root, "_pages/about.tmpl", "---\npermalink: /about/\n---\nabout\n")
		doc, err := Read("_pages/about.tmpl", opts)
		require.NoError(t, err)

		permalink, err := doc.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/about/", permalink)

		target, err := doc.TargetFile()
		require.NoError(t, err)
		assert.Equal(t, "about/index.html", target)
	})

	t.Run("permalink list yields redirects", func(t *testing.T) {
		writeFile(t, root, "_pages/list.tmpl", "---\npermalink:\n  - /new/\n  - /old/\nredirects: [/older/]\n---\nbody\n")
		doc, err := Read("_pages/list.tmpl", opts)
		require.NoError(t, err)

		permalink, err := doc.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/new/", permalink)

		redirects, err := doc.Redirects()
		require.NoError(t, err)
		assert.Equal(t, []string{"/old/", "/older/"}, redirects)
	})

	t.Run("permalink with variables", func(t *testing.T) {
		writeFile(t, root, "_pages/post.tmpl", "---\ndate: 2017-03-09\nslug: my post\npermalink: /blog/%year/%slug/\n---\nbody\n")
		doc, err := Read("_pages/post.tmpl", opts)
		require.NoError(t, err)

		permalink, err := doc.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/blog/2017/my-post/", permalink)
	})
}

func TestReadErrors(t *testing.T) {
	root := t.TempDir()
	opts := Options{Root: root}

	_, err := Read("missing.tmpl", opts)
	assert.ErrorIs(t, err, core.ErrFileNotFound)

	writeFile(t, root, "plain.tmpl", "no front matter here")
	_, err = Read("plain.tmpl", opts)
	require.ErrorIs(t, err, core.ErrDocumentFormat)

	var format *core.DocumentFormatError
	require.True(t, errors.As(err, &format))
	assert.Equal(t, "plain.tmpl", format.Path)

	writeFile(t, root, "empty.tmpl", "---\ntitle: x\n---\n\n")
	_, err = Read("empty.tmpl", opts)
	assert.ErrorIs(t, err, core.ErrDocumentFormat)
}

func TestMemoization(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "_posts/hello.md", "---\ntitle: Hello\nsubtitle: \"%title again\"\n---\n# hi\n")

	markup := &upperRenderer{}
	item, err := ReadContentItem("_posts/hello.md", Options{Root: root}, markup)
	require.NoError(t, err)

	fm, body, permalink := item.Evaluated()
	assert.False(t, fm || body || permalink)

	first, err := item.EvaluateFrontMatter(nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", first["subtitle"])

	second, err := item.EvaluateFrontMatter(nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	out, err := item.Body()
	require.NoError(t, err)
	assert.Equal(t, "# HI", out)
	_, err = item.Body()
	require.NoError(t, err)
	assert.Equal(t, 1, markup.calls, "body is rendered once")

	_, err = item.Permalink()
	require.NoError(t, err)
	fmDone, bodyDone, permalinkDone := item.Evaluated()
	assert.True(t, fmDone && bodyDone && permalinkDone)

	t.Run("refresh resets every flag", func(t *testing.T) {
		writeFile(t, root, "_posts/hello.md", "---\ntitle: Changed\n---\nnew body\n")
		require.NoError(t, item.Refresh())

		fmDone, bodyDone, permalinkDone := item.Evaluated()
		assert.False(t, fmDone || bodyDone || permalinkDone)

		fm, err := item.EvaluateFrontMatter(nil)
		require.NoError(t, err)
		assert.Equal(t, "Changed", fm["title"])
		assert.NotContains(t, fm, "subtitle")
	})

	t.Run("variables override existing keys", func(t *testing.T) {
		fm, err := item.EvaluateFrontMatter(map[string]any{"title": "Injected"})
		require.NoError(t, err)
		assert.Equal(t, "Injected", fm["title"])
	})
}

func TestPermalinkIsMemoized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "_pages/about.tmpl", "---\ntitle: About\n---\nabout\n")

	doc, err := Read("_pages/about.tmpl", Options{Root: root})
	require.NoError(t, err)

	permalink, err := doc.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "about", permalink)
	target, err := doc.TargetFile()
	require.NoError(t, err)
	assert.Equal(t, "about/index.html", target)

	_, err = doc.EvaluateFrontMatter(map[string]any{"permalink": "/other/"})
	require.NoError(t, err)
	writeFile(t, root, "_pages/about.tmpl", "---\npermalink: /moved/\n---\nabout\n")

	again, err := doc.Permalink()
	require.NoError(t, err)
	assert.Equal(t, permalink, again)
	againTarget, err := doc.TargetFile()
	require.NoError(t, err)
	assert.Equal(t, target, againTarget)

	require.NoError(t, doc.Refresh())
	refreshed, err := doc.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "/moved/", refreshed)
}

func TestContentItemDraft(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "_posts/draft.md", "---\ndraft: true\n---\nwip\n")
	writeFile(t, root, "_posts/live.md", "---\ntitle: Live\n---\nlive\n")

	draft, err := ReadContentItem("_posts/draft.md", Options{Root: root}, nil)
	require.NoError(t, err)
	assert.True(t, draft.IsDraft())

	live, err := ReadContentItem("_posts/live.md", Options{Root: root}, nil)
	require.NoError(t, err)
	assert.False(t, live.IsDraft())
}

func TestDataItem(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "_data/site.json", `{"name":"demo"}`)

	decode := func(ext string, raw []byte) (map[string]any, error) {
		require.Equal(t, "json", ext)
		return map[string]any{"name": strings.Contains(string(raw), "demo")}, nil
	}
	item, err := ReadDataItem("_data/site.json", Options{Root: root}, decode)
	require.NoError(t, err)

	data, err := item.Data()
	require.NoError(t, err)
	assert.Equal(t, true, data["name"])
	assert.Empty(t, item.Content())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		fm   core.FrontMatter
		want core.PageKind
	}{
		{"plain", core.FrontMatter{"title": "x"}, core.PageStatic},
		{"collection", core.FrontMatter{"collection": "posts"}, core.PageDynamic},
		{"dataset", core.FrontMatter{"dataset": "books"}, core.PageDynamic},
		{"sequence in permalink", core.FrontMatter{"year": []any{1, 2}, "permalink": "/%year/"}, core.PageRepeater},
		{"scalar in permalink", core.FrontMatter{"year": 1, "permalink": "/%year/"}, core.PageStatic},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.fm))
		})
	}
}

func TestDynamicPageViewItems(t *testing.T) {
	root := t.TempDir()
	opts := Options{Root: root}
	writeFile(t, root, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /blog/%basename/\n---\n{{ .this.title }}\n")
	writeFile(t, root, "_posts/first-post.md", "---\ndate: 2017-01-01\n---\none\n")
	writeFile(t, root, "_posts/second.md", "---\ntitle: Second\npermalink: /custom/\n---\ntwo\n")

	pv, err := ReadPageView("_pages/posts.html.tmpl", opts)
	require.NoError(t, err)
	dynamic, ok := pv.(*DynamicPageView)
	require.True(t, ok)
	assert.Equal(t, "posts", dynamic.Source())
	assert.False(t, dynamic.IsDataset())

	first, err := ReadContentItem("_posts/first-post.md", opts, nil)
	require.NoError(t, err)
	second, err := ReadContentItem("_posts/second.md", opts, nil)
	require.NoError(t, err)

	require.NoError(t, dynamic.AddItem(first))
	require.NoError(t, dynamic.AddItem(second))
	require.Len(t, dynamic.Items(), 2)

	permalink, err := first.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "/blog/first-post/", permalink)
	assert.Equal(t, "posts", first.Collection())

	jail, err := first.Jail()
	require.NoError(t, err)
	assert.Equal(t, "First Post", jail["title"])
	assert.Equal(t, "one", jail["content"])

	permalink, err = second.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "/custom/", permalink)

	t.Run("refresh picks up a new pattern", func(t *testing.T) {
		writeFile(t, root, "_pages/posts.html.tmpl", "---\ncollection: posts\npermalink: /posts/%basename/\n---\n{{ .this.title }}\n")
		require.NoError(t, dynamic.Refresh())

		permalink, err := first.Permalink()
		require.NoError(t, err)
		assert.Equal(t, "/posts/first-post/", permalink)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := dynamic.RefreshItem("_posts/nope.md")
		assert.ErrorIs(t, err, core.ErrUntrackedPath)
	})

	assert.True(t, dynamic.RemoveItem("_posts/second.md"))
	assert.Len(t, dynamic.Items(), 1)
}

func TestRepeaterPageView(t *testing.T) {
	root := t.TempDir()
	opts := Options{Root: root}

	t.Run("expands and pairs redirects", func(t *testing.T) {
		writeFile(t, root, "_pages/letters.tmpl", strings.Join([]string{
			"---",
			"letter: [a, b]",
			"permalink: /%letter/",
			"redirects:",
			"  - /%letter-old/",
			"---",
			"{{ .this.iterators.letter }}",
		}, "\n"))

		pv, err := ReadPageView("_pages/letters.tmpl", opts)
		require.NoError(t, err)
		repeater, ok := pv.(*RepeaterPageView)
		require.True(t, ok)

		permalinks := repeater.RepeaterPermalinks()
		require.Len(t, permalinks, 2)
		assert.Equal(t, "/a/", permalinks[0].Evaluated)
		assert.Equal(t, "/b/", permalinks[1].Evaluated)

		redirects := repeater.RepeaterRedirects()
		require.Len(t, redirects, 1)
		assert.Equal(t, "/a-old/", redirects[0][0].Evaluated)
		assert.Equal(t, "/b-old/", redirects[0][1].Evaluated)

		var targets []string
		repeater.RewindPermalink()
		for {
			value, ok := repeater.BumpPermalink()
			if !ok {
				break
			}
			target, err := repeater.TargetFile()
			require.NoError(t, err)
			targets = append(targets, target)

			jail, err := repeater.Jail()
			require.NoError(t, err)
			assert.Equal(t, value.Evaluated, jail["permalink"])
			assert.Equal(t, value.Iterators["letter"], jail["iterators"].(map[string]any)["letter"])
		}
		assert.Equal(t, []string{"a/index.html", "b/index.html"}, targets)
	})

	t.Run("misaligned redirects are rejected", func(t *testing.T) {
		writeFile(t, root, "_pages/bad.tmpl", strings.Join([]string{
			"---",
			"letter: [a, b]",
			"other: [x, y, z]",
			"permalink: /%letter/",
			"redirects: [\"/%other/\"]",
			"---",
			"body",
		}, "\n"))

		_, err := ReadPageView("_pages/bad.tmpl", opts)
		require.ErrorIs(t, err, core.ErrRedirectAlignment)

		var alignment *core.RedirectAlignmentError
		require.True(t, errors.As(err, &alignment))
		assert.Equal(t, 2, alignment.Want)
		assert.Equal(t, 3, alignment.Got)
	})
}

func TestNewRedirect(t *testing.T) {
	redirect := NewRedirect("/old page/", "/new/", "<a href=\"{{ .this.redirect_to }}\"></a>", "tmpl")

	target, err := redirect.TargetFile()
	require.NoError(t, err)
	assert.Equal(t, "old-page/index.html", target)

	jail, err := redirect.Jail()
	require.NoError(t, err)
	assert.Equal(t, "/new/", jail["redirect_to"])
	assert.Equal(t, "/old-page/", jail["redirect_from"])
	assert.NoError(t, redirect.Refresh())
}

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "My First Post", TitleFromName("my-first_post"))
	assert.Equal(t, "Hello", TitleFromName("hello"))
}
