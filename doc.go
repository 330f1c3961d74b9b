// Package stakx compiles a folder of front matter documents into a static
// website and keeps the output up to date while the sources change.
//
// A site is described by `_config.yml` at its root. PageViews are the
// templates producing output files:
//
//   - a Static PageView produces one file at its permalink;
//   - a Repeater PageView expands permalink patterns such as `/%year/` over
//     sequences in its front matter and produces one file per value;
//   - a Dynamic PageView produces one file per item of a collection
//     (Markdown documents) or a dataset (JSON, YAML or CSV records).
//
// Templates include partials and extend layouts by their path relative to the
// root. The dependency tracker remembers those relations, so a change to a
// partial only recompiles the PageViews using it.
//
// Usage:
//
//	site, err := stakx.New("./my-site",
//		stakx.WithDrafts(true),
//		stakx.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	// Compile everything once
//	err = site.Build(ctx)
//
//	// Or compile and recompile on change until ctx is done
//	err = site.Watch(ctx)
package stakx
