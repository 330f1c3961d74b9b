package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/PeterMedina/stakx"
	"github.com/PeterMedina/stakx/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of posts to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark site after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "stakx_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d posts in %s...\n", *count, benchDir)
	startGen := time.Now()

	files := map[string]string{
		"_config.yml":              "title: Bench\ncollections:\n  - name: posts\n    folder: _posts\n",
		"_layouts/base.html.tmpl":  "<html>{{ block \"content\" . }}{{ end }}</html>",
		"_includes/nav.html.tmpl":  "<nav>{{ .site.title }}</nav>",
		"_includes/foot.html.tmpl": "<footer>{{ len .collections.posts }} posts</footer>",
		"_pages/index.html.tmpl":   "---\ntitle: Home\n---\n{{ define \"content\" }}{{ template \"_includes/nav.html.tmpl\" . }}{{ template \"_includes/foot.html.tmpl\" . }}{{ end }}{{ template \"_layouts/base.html.tmpl\" . }}",
		"_pages/posts.html.tmpl":   "---\ncollection: posts\npermalink: /posts/%basename/\n---\n{{ define \"content\" }}{{ template \"_includes/nav.html.tmpl\" . }}<article>{{ .this.content }}</article>{{ end }}{{ template \"_layouts/base.html.tmpl\" . }}",
	}
	for i := 0; i < *count; i++ {
		files[fmt.Sprintf("_posts/post_%d.md", i)] = fmt.Sprintf("---\ntitle: Post %d\ndate: %s\n---\n# Benchmark Post %d\nThis is a test post.", i, time.Now().Format("2006-01-02"), i)
	}
	for rel, content := range files {
		path := filepath.Join(benchDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	site, err := stakx.New(benchDir, stakx.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	fmt.Println("Running full build...")
	startBuild := time.Now()
	if err := site.Build(context.Background()); err != nil {
		panic(err)
	}
	full := time.Since(startBuild)

	// A post edit recompiles one target; a partial edit recompiles its dependents.
	changes := []string{"_posts/post_0.md", "_includes/foot.html.tmpl", "_includes/nav.html.tmpl"}
	incremental := make([]time.Duration, 0, len(changes))
	for _, rel := range changes {
		start := time.Now()
		if err := site.HandleEvent(core.Event{Type: core.EventModify, Path: rel}); err != nil {
			panic(err)
		}
		incremental = append(incremental, time.Since(start))
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d posts):\n", *count)
	fmt.Printf("  Full build: %v\n", full)
	for i, rel := range changes {
		fmt.Printf("  Change %-26s %v\n", rel+":", incremental[i])
	}
	fmt.Printf("--------------------------------------------------\n")
}
