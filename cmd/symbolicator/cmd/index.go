/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/colors"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/model"
	"github.com/blacktop/symbolicator/internal/syms"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringSliceP("lookup", "l", nil, "Look up UUIDs in the index instead of scanning")
	indexCmd.Flags().StringSlice("exclude", nil, "Glob patterns (relative to each directory) to skip")
	indexCmd.Flags().Int("batch", 100, "Number of entries written per transaction")
	indexCmd.Flags().Bool("json", false, "Output as JSON")

	viper.BindPFlag("index.lookup", indexCmd.Flags().Lookup("lookup"))
	viper.BindPFlag("index.exclude", indexCmd.Flags().Lookup("exclude"))
	viper.BindPFlag("index.batch", indexCmd.Flags().Lookup("batch"))
	viper.BindPFlag("index.json", indexCmd.Flags().Lookup("json"))
}

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <DIR>...",
	Short: "Index the dSYMs found under directories",
	Example: heredoc.Doc(`
		# Index Xcode's archives into a SQLite index
		❯ symbolicator index --index ~/.config/symbolicator/dsyms.db ~/Library/Developer/Xcode/Archives

		# Share an index with your team
		❯ symbolicator index --index postgres://user:pass@db/dsyms /Volumes/builds

		# Look a UUID up
		❯ symbolicator index --index ~/.config/symbolicator/dsyms.db -l C8ECC43A-6F0F-3880-920A-071973DA584C`),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		if conf.Discovery.Index == "" {
			return fmt.Errorf("no dSYM index configured (use --index or set discovery.index)")
		}

		sym, err := symcmd.New(conf)
		if err != nil {
			return err
		}
		defer sym.Close()

		if lookup := viper.GetStringSlice("index.lookup"); len(lookup) > 0 {
			var uuids []crashlog.UUID
			for _, s := range lookup {
				u, ok := crashlog.ParseUUID(s)
				if !ok {
					return fmt.Errorf("invalid UUID %q", s)
				}
				uuids = append(uuids, u)
			}
			entries, err := syms.Lookup(sym.Index(), uuids...)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					log.Warn("No dSYMs found")
					return nil
				}
				return err
			}
			if ok, err := printStructured(stdout, entries, viper.GetBool("index.json"), false); ok || err != nil {
				return err
			}
			for _, e := range entries {
				u, _ := crashlog.ParseUUID(e.UUID)
				fmt.Fprintf(stdout, "%s  %-8s %s\n", colors.UUID(u.Pretty()), e.Arch, e.Path)
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("must supply at least one directory to index")
		}
		cache, err := sym.NewCache()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := spinner.New(spinner.CharSets[38], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Prefix = color.BlueString("   • Indexing dSYMs... ")

		var stats *syms.Stats
		if err := ctrlc.Default.Run(ctx, func() error {
			s.Start()
			defer s.Stop()
			var err error
			stats, err = syms.Scan(ctx, args, cache, sym.Index(), &syms.Config{
				Extension: conf.Discovery.Extension,
				Exclude:   viper.GetStringSlice("index.exclude"),
				BatchSize: viper.GetInt("index.batch"),
			})
			return err
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				return nil
			}
			return err
		}

		if ok, err := printStructured(stdout, stats, viper.GetBool("index.json"), false); ok || err != nil {
			return err
		}
		total, err := sym.Index().Count()
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"dirs":    humanize.Comma(int64(stats.Dirs)),
			"bundles": humanize.Comma(int64(stats.Bundles)),
			"entries": humanize.Comma(int64(stats.Entries)),
			"failed":  stats.Failed,
			"total":   humanize.Comma(total),
		}).Info("Indexed dSYMs")

		return nil
	},
}
