// Package dsym provides the dSYM bundle routes
package dsym

import (
	"net/http"
	"path/filepath"

	"github.com/blacktop/symbolicator/api/types"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/gin-gonic/gin"
)

// AddRoutes adds the dsym routes to the router
func AddRoutes(rg *gin.RouterGroup, sym *symcmd.Symbolicator) {
	// swagger:route GET /v1/dsym dSYM getDSYM
	//
	// dSYM
	//
	// Get the UUIDs and bundle info of a dSYM.
	//
	//     Produces:
	//     - application/json
	//
	//     Parameters:
	//       + name: path
	//         in: query
	//         description: path to dSYM bundle
	//         required: true
	//         type: string
	//       + name: uuid
	//         in: query
	//         description: fail unless the bundle contains this UUID
	//         required: false
	//         type: string
	//
	//     Responses:
	//       200: dsymResponse
	//       400: genericError
	//       404: genericError
	rg.GET("/dsym", func(c *gin.Context) {
		path := c.Query("path")
		if path == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: "'path' query parameter is required"})
			return
		}

		cache, err := sym.NewCache()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, types.GenericError{Error: err.Error()})
			return
		}
		f, err := cache.Load(c.Request.Context(), filepath.Clean(path))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: err.Error()})
			return
		}

		if want := c.Query("uuid"); want != "" {
			u, ok := crashlog.ParseUUID(want)
			if !ok {
				c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: "invalid 'uuid' query parameter"})
				return
			}
			if !f.Has(u) {
				c.AbortWithStatusJSON(http.StatusNotFound, types.GenericError{Error: "bundle does not contain " + u.Pretty()})
				return
			}
		}

		c.JSON(http.StatusOK, types.DSYMResponse{File: f, Binary: f.BinaryPath()})
	})
}
