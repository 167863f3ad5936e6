// Package daemon provides the health and status routes
package daemon

import (
	"net/http"
	"runtime"

	"github.com/blacktop/symbolicator/api"
	"github.com/blacktop/symbolicator/api/types"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/gin-gonic/gin"
)

// AddRoutes adds the daemon routes to the router
func AddRoutes(rg *gin.RouterGroup, sym *symcmd.Symbolicator) {
	// swagger:route GET /_ping Daemon getDaemonPing
	//
	// Ping
	//
	// This will return "OK" if the daemon is running (HEAD returns an empty 200).
	rg.Match([]string{http.MethodGet, http.MethodHead}, "/_ping", func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		if c.Request.Method == http.MethodHead {
			c.Status(http.StatusOK)
			return
		}
		c.String(http.StatusOK, "OK")
	})
	// swagger:route GET /version Daemon getDaemonVersion
	//
	// Version
	//
	// This will return the daemon version info.
	rg.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, types.Version{
			APIVersion:     api.DefaultVersion,
			OSType:         runtime.GOOS,
			BuilderVersion: types.BuildVersion,
			BuildTime:      types.BuildTime,
		})
	})
	// swagger:route GET /status Daemon getDaemonStatus
	//
	// Status
	//
	// This will return the discovery tiers and the size of the dSYM index.
	rg.GET("/status", func(c *gin.Context) {
		status := types.Status{
			Tiers:        sym.Tiers(),
			UUIDReader:   sym.UUIDReader(),
			IndexEntries: -1,
		}
		if idx := sym.Index(); idx != nil {
			n, err := idx.Count()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, types.GenericError{Error: err.Error()})
				return
			}
			status.IndexEntries = n
		}
		c.JSON(http.StatusOK, status)
	})
}
