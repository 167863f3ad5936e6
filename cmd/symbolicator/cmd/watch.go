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
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/commands/watch"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/caarlos0/ctrlc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolP("discover", "d", true, "Search for the dSYMs of each report")
	watchCmd.Flags().StringSliceP("dsym", "s", nil, "dSYMs to use for every report")
	watchCmd.Flags().StringSliceP("ext", "e", watch.DefaultExtensions, "Report file extensions to watch")
	watchCmd.Flags().String("state", "", "JSON file remembering processed reports across restarts")
	watchCmd.Flags().Bool("backfill", false, "Symbolicate the reports already in the directory first")
	watchCmd.Flags().String("command", "", "Shell command to run after each report (gets SYMBOLICATOR_REPORT/OUTPUT)")
	watchCmd.Flags().Duration("debounce", 0, "Wait for a report to stop changing before symbolicating it")
	watchCmd.MarkFlagFilename("state", "json")

	viper.BindPFlag("watch.discover", watchCmd.Flags().Lookup("discover"))
	viper.BindPFlag("watch.dsym", watchCmd.Flags().Lookup("dsym"))
	viper.BindPFlag("watch.ext", watchCmd.Flags().Lookup("ext"))
	viper.BindPFlag("watch.state", watchCmd.Flags().Lookup("state"))
	viper.BindPFlag("watch.backfill", watchCmd.Flags().Lookup("backfill"))
	viper.BindPFlag("watch.command", watchCmd.Flags().Lookup("command"))
	viper.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce"))
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <DIR>",
	Short: "Symbolicate reports as they appear in a directory",
	Example: heredoc.Doc(`
		# Symbolicate new crash reports from the system's diagnostic reports
		❯ symbolicator watch ~/Library/Logs/DiagnosticReports

		# Remember what was done across restarts and notify when finished
		❯ symbolicator watch --backfill --state ~/.config/symbolicator/watch.json \
			--command 'osascript -e "display notification \"$SYMBOLICATOR_OUTPUT\""' ./reports`),
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		sym, err := symcmd.New(conf)
		if err != nil {
			return err
		}
		defer sym.Close()

		var cache watch.Cache
		if state := viper.GetString("watch.state"); state != "" {
			if state, err = utils.ExpandHome(state); err != nil {
				return err
			}
			if cache, err = watch.NewFileCache(state); err != nil {
				return err
			}
		} else if cache, err = watch.NewMemoryCache(conf.Symbolicate.CacheSize * 8); err != nil {
			return err
		}

		w := watch.New(watch.Config{
			Dir:        filepath.Clean(args[0]),
			Extensions: viper.GetStringSlice("watch.ext"),
			Command:    viper.GetString("watch.command"),
			Debounce:   viper.GetDuration("watch.debounce"),
			Options: symcmd.Options{
				DSYMs:    viper.GetStringSlice("watch.dsym"),
				Discover: viper.GetBool("watch.discover"),
			},
		}, sym, cache)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := ctrlc.Default.Run(ctx, func() error {
			if viper.GetBool("watch.backfill") {
				if err := w.Backfill(ctx); err != nil {
					return err
				}
			}
			return w.Watch(ctx)
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				return nil
			}
			return err
		}

		return nil
	},
}
