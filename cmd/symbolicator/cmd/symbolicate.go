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
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(symbolicateCmd)

	symbolicateCmd.Flags().BoolP("translate-only", "t", false, "Only translate a JSON (.ips) report to the text format")
	symbolicateCmd.Flags().BoolP("uuids-only", "u", false, "Only list the dSYM UUIDs the report needs")
	symbolicateCmd.Flags().BoolP("discover", "d", false, "Search for the dSYMs that were not given")
	symbolicateCmd.Flags().StringP("output", "o", "", "Output file (default <report>_symbolicated.<ext>)")
	symbolicateCmd.Flags().BoolP("dry-run", "n", false, "Print the result instead of writing it")
	symbolicateCmd.Flags().Bool("system", false, "Include system images in --uuids-only listings")
	symbolicateCmd.Flags().Bool("json", false, "Output as JSON")
	symbolicateCmd.Flags().Bool("yaml", false, "Output as YAML")
	symbolicateCmd.MarkFlagsMutuallyExclusive("translate-only", "uuids-only")
	symbolicateCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	symbolicateCmd.MarkFlagFilename("output")

	viper.BindPFlag("symbolicate.translate-only", symbolicateCmd.Flags().Lookup("translate-only"))
	viper.BindPFlag("symbolicate.uuids-only", symbolicateCmd.Flags().Lookup("uuids-only"))
	viper.BindPFlag("symbolicate.discover", symbolicateCmd.Flags().Lookup("discover"))
	viper.BindPFlag("symbolicate.output", symbolicateCmd.Flags().Lookup("output"))
	viper.BindPFlag("symbolicate.dry-run", symbolicateCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("symbolicate.system", symbolicateCmd.Flags().Lookup("system"))
	viper.BindPFlag("symbolicate.json", symbolicateCmd.Flags().Lookup("json"))
	viper.BindPFlag("symbolicate.yaml", symbolicateCmd.Flags().Lookup("yaml"))
}

// symbolicateCmd represents the symbolicate command
var symbolicateCmd = &cobra.Command{
	Use:     "symbolicate <REPORT> [DSYM...]",
	Aliases: []string{"sym"},
	Short:   "Symbolicate a crash, sample or spindump report",
	Example: heredoc.Doc(`
		# Symbolicate a crash report with its dSYM
		❯ symbolicator symbolicate MyApp.crash MyApp.app.dSYM

		# Find the dSYMs next to the report, in the index or in Xcode's archives
		❯ symbolicator symbolicate --discover MyApp-2024-05-01-101010.ips

		# List the dSYMs a spindump needs
		❯ symbolicator symbolicate --uuids-only --system MyApp.spin

		# Convert a JSON crash report to the text format
		❯ symbolicator symbolicate --translate-only MyApp.ips`),
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		opts := symcmd.Options{
			DSYMs:         args[1:],
			Output:        viper.GetString("symbolicate.output"),
			TranslateOnly: viper.GetBool("symbolicate.translate-only"),
			UUIDsOnly:     viper.GetBool("symbolicate.uuids-only"),
			Discover:      viper.GetBool("symbolicate.discover"),
			DryRun:        viper.GetBool("symbolicate.dry-run"),
		}
		if len(opts.DSYMs) == 0 && !opts.Discover && !opts.TranslateOnly && !opts.UUIDsOnly {
			return fmt.Errorf("must supply at least one dSYM (or use --discover)")
		}
		asJSON := viper.GetBool("symbolicate.json")
		asYAML := viper.GetBool("symbolicate.yaml")

		sym, err := symcmd.New(conf)
		if err != nil {
			return err
		}
		defer sym.Close()

		var s *spinner.Spinner
		if opts.Discover && !asJSON && !asYAML {
			s = spinner.New(spinner.CharSets[38], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			s.Prefix = color.BlueString("   • Searching for dSYMs... ")
			opts.OnDiscover = func(finished bool, results []discovery.SearchResult) {
				s.Lock()
				defer s.Unlock()
				if len(results) > 0 {
					s.Suffix = fmt.Sprintf(" found %d in %s", len(results), results[0].Tier)
				}
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var out *symcmd.Outcome
		if err := ctrlc.Default.Run(ctx, func() error {
			if s != nil {
				s.Start()
				defer s.Stop()
			}
			var err error
			out, err = sym.Run(ctx, args[0], opts)
			return err
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				return nil
			}
			if out != nil && out.Result != nil && !asJSON && !asYAML {
				printResult(stdout, out.Result)
			}
			return err
		}

		var payload any = out
		if opts.UUIDsOnly {
			payload = out.Requirements
		}
		if ok, err := printStructured(stdout, payload, asJSON, asYAML); ok || err != nil {
			return err
		}

		switch {
		case opts.UUIDsOnly:
			printHeader(stdout, out.Header)
			printRequirements(stdout, out.Requirements, viper.GetBool("symbolicate.system"))
		case opts.DryRun:
			fmt.Fprint(stdout, out.Content)
		default:
			if len(out.Discovered) > 0 {
				log.Info("Discovered dSYMs")
				for _, r := range out.Discovered {
					utils.Indent(log.WithField("tier", r.Tier).Info, 2)(r.Path)
				}
			}
			printHeader(stdout, out.Header)
			if out.Result != nil {
				printResult(stdout, out.Result)
			}
			for _, m := range out.Missing {
				utils.Indent(log.WithField("uuid", m.UUID.Pretty()).Warn, 2)("missing dSYM for " + m.TargetName)
			}
			log.WithField("output", out.Output).Info("Wrote report")
		}

		return nil
	},
}
