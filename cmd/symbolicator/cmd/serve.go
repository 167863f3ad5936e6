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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Host to listen on (default localhost)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default 3993)")
	serveCmd.Flags().Bool("debug", false, "Enable gin debug mode and request logging")

	viper.BindPFlag("daemon.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("daemon.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("daemon.debug", serveCmd.Flags().Lookup("debug"))
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Start the symbolication daemon",
	Example: heredoc.Doc(`
		# Start the daemon
		❯ symbolicator serve --port 3993

		# Symbolicate a report through it
		❯ curl -s localhost:3993/v1/symbolicate -d '{"path": "/tmp/MyApp.crash", "discover": true}'`),
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		d, err := daemon.NewDaemon(conf)
		if err != nil {
			return err
		}

		errc := make(chan error, 1)
		go func() { errc <- d.Start() }()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case err := <-errc:
			return errors.Join(err, d.Stop())
		case s := <-sig:
			log.WithField("signal", s.String()).Warn("Shutting down")
			return d.Stop()
		}
	},
}
