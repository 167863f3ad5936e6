// Package routes contains all the routes for the API
package routes

import (
	"github.com/blacktop/symbolicator/api/server/routes/daemon"
	"github.com/blacktop/symbolicator/api/server/routes/dsym"
	"github.com/blacktop/symbolicator/api/server/routes/symbolicate"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/gin-gonic/gin"
)

// AddDaemon adds the unversioned daemon routes to the router
func AddDaemon(rg *gin.RouterGroup, sym *symcmd.Symbolicator) {
	daemon.AddRoutes(rg, sym)
}

// Add adds the command routes to the router
func Add(rg *gin.RouterGroup, sym *symcmd.Symbolicator) {
	symbolicate.AddRoutes(rg, sym)
	dsym.AddRoutes(rg, sym)
}
