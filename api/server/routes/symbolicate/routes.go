// Package symbolicate provides the symbolication routes
package symbolicate

import (
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/gin-gonic/gin"
)

// AddRoutes adds the symbolicate routes to the router
func AddRoutes(rg *gin.RouterGroup, sym *symcmd.Symbolicator) {
	h := &handler{sym: sym}
	// swagger:route POST /v1/symbolicate Symbolicate postSymbolicate
	//
	// Symbolicate
	//
	// Symbolicate a report on the daemon's filesystem.
	//
	//     Consumes:
	//     - application/json
	//
	//     Produces:
	//     - application/json
	//
	//     Responses:
	//       200: symbolicateResponse
	//       400: genericError
	//       422: symbolicateResponse
	//       500: genericError
	rg.POST("/symbolicate", h.symbolicate)
	// swagger:route GET /v1/requirements Symbolicate getRequirements
	//
	// Requirements
	//
	// List the dSYMs a report needs.
	//
	//     Produces:
	//     - application/json
	//
	//     Parameters:
	//       + name: path
	//         in: query
	//         description: path to report
	//         required: true
	//         type: string
	//       + name: system
	//         in: query
	//         description: include system images
	//         required: false
	//         type: boolean
	//
	//     Responses:
	//       200: requirementsResponse
	//       400: genericError
	rg.GET("/requirements", h.requirements)
}
