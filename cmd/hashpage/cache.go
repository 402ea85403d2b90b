package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/vango-dev/hashpage/internal/config"
)

func cacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the fragment cache",
		Long: `Inspect and clear the fragment cache.

Only persistent stores (badger:DIR, sqlite:FILE) outlive the process, so
these commands are mostly useful with one of them configured.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List cached fragments",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := c.load()
				if err != nil {
					return err
				}
				return listCache(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "clear [view...]",
			Short: "Remove cached fragments",
			Long: `Remove cached fragments. With no arguments every entry under the
configured page directory is removed.

Examples:
  hashpage cache clear
  hashpage cache clear /docs/index 'widget$ui.card'`,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := c.load()
				if err != nil {
					return err
				}
				return clearCache(cmd.Context(), cfg, logger, args)
			},
		},
	)
	return cmd
}

func listCache(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := pageCache(cfg, store, logger)
	keys, err := cache.Entries(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		info("Cache is empty")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIEW\tSIZE\tVERSION\tEXPIRES\tSTATE")
	var total uint64
	for _, k := range keys {
		e, ok := cache.Peek(ctx, k)
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tcorrupt\n", cache.View(k))
			continue
		}
		state := "valid"
		if !cache.Valid(e) {
			state = "stale"
		}
		size := uint64(len(e.HTML))
		total += size
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			cache.View(k),
			humanize.Bytes(size),
			orDash(e.Version),
			humanize.Time(time.UnixMilli(e.Expire)),
			state,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	info("%s in %s", humanize.Bytes(total), english.Plural(len(keys), "entry", "entries"))
	return nil
}

func clearCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, views []string) error {
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := pageCache(cfg, store, logger)
	if len(views) == 0 {
		n, err := cache.Purge(ctx)
		if err != nil {
			return err
		}
		success("Removed %s", english.Plural(n, "entry", "entries"))
		return nil
	}
	for _, v := range views {
		cache.Evict(ctx, v)
	}
	success("Removed %s", english.Plural(len(views), "entry", "entries"))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
