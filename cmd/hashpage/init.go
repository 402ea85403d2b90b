package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/hashpage/internal/config"
	herrors "github.com/vango-dev/hashpage/internal/errors"
)

const (
	sampleIndex = `<title>Home</title>
<style>.hero { font-family: sans-serif }</style>
<template>
  <h1 class="hero">It works</h1>
  <p>Edit page/index.html, or add page/about.html and open <a href="#/about">#/about</a>.</p>
</template>
`

	sample404 = `<title>Not Found</title>
<template>
  <h1>Not Found</h1>
  <p><a href="#/">Back home</a></p>
</template>
`
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a config file and sample pages",
		Long: `Create ` + config.ConfigFileName + ` and a minimal page directory.

Examples:
  hashpage init
  hashpage init site --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func runInit(dir string, force bool) error {
	if config.Exists(dir) && !force {
		return herrors.New("H005").WithDetail(filepath.Join(dir, config.ConfigFileName))
	}

	cfg := config.New()
	cfg.NotFound = "404"

	pages := filepath.Join(dir, filepath.FromSlash(cfg.Pages))
	if err := os.MkdirAll(pages, 0o755); err != nil {
		return err
	}
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return err
	}
	success("Created %s", config.ConfigFileName)

	for _, f := range []struct{ name, body string }{
		{"index.html", sampleIndex},
		{"404.html", sample404},
	} {
		path := filepath.Join(pages, f.name)
		if _, err := os.Stat(path); err == nil {
			warn("Kept existing %s", path)
			continue
		}
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return err
		}
		success("Created %s", path)
	}

	info("Run 'hashpage serve' and open http://%s", cfg.Serve.Addr)
	return nil
}
