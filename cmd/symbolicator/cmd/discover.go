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
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().Bool("json", false, "Output as JSON")
	discoverCmd.Flags().Bool("yaml", false, "Output as YAML")
	discoverCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	viper.BindPFlag("discover.json", discoverCmd.Flags().Lookup("json"))
	viper.BindPFlag("discover.yaml", discoverCmd.Flags().Lookup("yaml"))
}

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover <REPORT> [DSYM...]",
	Short: "Search for the dSYMs a report needs",
	Example: heredoc.Doc(`
		# Search Spotlight, the index, the report's folder and Xcode's archives
		❯ symbolicator discover MyApp.crash

		# Skip the dSYMs you already have
		❯ symbolicator discover MyApp.crash MyApp.app.dSYM`),
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		asJSON := viper.GetBool("discover.json")
		asYAML := viper.GetBool("discover.yaml")

		sym, err := symcmd.New(conf)
		if err != nil {
			return err
		}
		defer sym.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		report, err := sym.Open(ctx, args[0])
		if err != nil {
			return err
		}
		cache, err := sym.NewCache()
		if err != nil {
			return err
		}
		have := cache.LoadAll(ctx, args[1:])

		s := spinner.New(spinner.CharSets[38], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Prefix = color.BlueString("   • Searching for dSYMs... ")

		start := time.Now()
		var results []discovery.SearchResult
		if err := ctrlc.Default.Run(ctx, func() error {
			if !asJSON && !asYAML {
				s.Start()
				defer s.Stop()
			}
			var err error
			results, err = sym.Discover(ctx, report, have, cache, nil)
			return err
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				return nil
			}
			return err
		}

		if ok, err := printStructured(stdout, results, asJSON, asYAML); ok || err != nil {
			return err
		}

		found := make(map[crashlog.UUID]struct{})
		for _, f := range have {
			for _, u := range f.UUIDs {
				found[u] = struct{}{}
			}
		}
		for _, r := range results {
			found[r.UUID] = struct{}{}
		}
		missing := report.Requirements().Missing(found)

		log.WithFields(log.Fields{
			"found":   len(results),
			"missing": len(missing),
			"took":    time.Since(start).Round(time.Millisecond),
		}).Info("Discovery finished")
		printDiscovered(stdout, results)
		for _, m := range missing {
			fmt.Fprintf(stdout, "%s  %s  %s\n", colors.UUID(m.UUID.Pretty()), colors.Failure("missing"), m.TargetName)
		}

		return nil
	},
}
