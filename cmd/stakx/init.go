package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var skeleton = map[string]string{
	"_config.yml": `title: My Site
collections:
  - name: posts
    folder: _posts
`,
	"_layouts/base.html.tmpl": `<!DOCTYPE html>
<html>
<head><title>{{ .this.title }} | {{ .site.title }}</title></head>
<body>{{ block "content" . }}{{ end }}</body>
</html>
`,
	"_pages/index.html.tmpl": `---
title: Home
---
{{ define "content" }}
<h1>{{ .site.title }}</h1>
<ul>{{ range .collections.posts }}<li><a href="{{ .permalink }}">{{ .title }}</a></li>{{ end }}</ul>
{{ end }}{{ template "_layouts/base.html.tmpl" . }}
`,
	"_pages/posts.html.tmpl": `---
collection: posts
permalink: /posts/%basename/
---
{{ define "content" }}<article>{{ .this.content }}</article>{{ end }}{{ template "_layouts/base.html.tmpl" . }}
`,
	"_posts/hello-world.md": `---
title: Hello World
---
Your first post.
`,
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new site skeleton",
	Long:  `Create a minimal site in the given directory (the current one by default). Existing files are never overwritten.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := scaffold(dir); err != nil {
			fatal("Failed to initialize site", err)
		}
		fmt.Println("Initialized stakx site in", dir)
	},
}

func scaffold(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "_config.yml")); err == nil {
		return errors.New("a site already exists here")
	}
	for rel, content := range skeleton {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
