// Package daemon provides the daemon interface and implementation.
package daemon

import (
	"context"
	"time"

	"github.com/blacktop/symbolicator/api/server"
	"github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/config"
	"github.com/gin-gonic/gin"
)

// Daemon is the interface that describes a symbolicator daemon.
type Daemon interface {
	// Start starts the daemon.
	Start() error
	// Stop stops the daemon.
	Stop() error
}

type daemon struct {
	server *server.Server
	sym    *symbolicate.Symbolicator
	conf   *config.Config
}

// NewDaemon creates a new daemon.
func NewDaemon(conf *config.Config, opts ...symbolicate.Option) (Daemon, error) {
	if conf.Daemon.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	sym, err := symbolicate.New(conf, opts...)
	if err != nil {
		return nil, err
	}
	return &daemon{
		conf: conf,
		sym:  sym,
		server: server.NewServer(&server.Config{
			Host:  conf.Daemon.Host,
			Port:  conf.Daemon.Port,
			Debug: conf.Daemon.Debug,
		}, sym),
	}, nil
}

func (d *daemon) Start() error {
	return d.server.Start()
}

func (d *daemon) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Stop(ctx); err != nil {
		return err
	}
	return d.sym.Close()
}
