package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// buildInfo fills in version fields left at their defaults from the VCS
// stamp the Go toolchain embeds, so `go install` builds report something
// useful without -ldflags.
func buildInfo() (v, rev, built string) {
	v, rev, built = version, commit, date
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && rev == "none":
			rev = s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
		case s.Key == "vcs.time" && built == "unknown":
			built = s.Value
		}
	}
	return
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, rev, built := buildInfo()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, v)
				return
			}

			printBanner()
			fmt.Fprintln(out)
			for _, row := range [][2]string{
				{"Version", v},
				{"Commit", rev},
				{"Built", built},
				{"Go version", runtime.Version()},
				{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
			} {
				fmt.Fprintf(out, "  %-11s %s\n", row[0]+":", row[1])
			}
			fmt.Fprintln(out)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}
