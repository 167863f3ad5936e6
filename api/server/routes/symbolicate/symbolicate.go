package symbolicate

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/blacktop/symbolicator/api/types"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type handler struct {
	sym *symcmd.Symbolicator
}

// status maps report loading errors to client errors
func status(err error) int {
	switch {
	case errors.Is(err, crashlog.ErrFileRead),
		errors.Is(err, crashlog.ErrEmptyFile),
		errors.Is(err, crashlog.ErrTranslation),
		errors.Is(err, crashlog.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) symbolicate(c *gin.Context) {
	var req types.SymbolicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: err.Error()})
		return
	}
	if len(req.DSYMs) == 0 && !req.Discover && !req.TranslateOnly {
		c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: "'dsyms' is required unless 'discover' or 'translate_only' is set"})
		return
	}

	out, err := h.sym.Run(c.Request.Context(), filepath.Clean(req.Path), symcmd.Options{
		DSYMs:         req.DSYMs,
		Output:        req.Output,
		TranslateOnly: req.TranslateOnly,
		Discover:      req.Discover,
		DryRun:        req.DryRun,
	})
	if out == nil {
		c.AbortWithStatusJSON(status(err), types.GenericError{Error: err.Error()})
		return
	}

	resp := types.SymbolicateResponse{
		Report:     out.Report,
		Output:     out.Output,
		Translated: out.Translated,
		Header:     out.Header,
		Missing:    out.Missing,
		Discovered: out.Discovered,
		Result:     out.Result,
		Content:    out.Content,
	}
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) requirements(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, types.GenericError{Error: "'path' query parameter is required"})
		return
	}

	report, err := h.sym.Open(c.Request.Context(), filepath.Clean(path))
	if err != nil {
		c.AbortWithStatusJSON(status(err), types.GenericError{Error: err.Error()})
		return
	}

	req := *report.Requirements()
	if !cast.ToBool(c.DefaultQuery("system", "true")) {
		req.System = nil
	}
	c.JSON(http.StatusOK, types.RequirementsResponse{Report: report.Path, Header: report.Header, Requirements: &req})
}
