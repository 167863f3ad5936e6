package types

import (
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/blacktop/symbolicator/pkg/dsym"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
)

var (
	BuildVersion string
	BuildTime    string
)

// Version is the version struct
type Version struct {
	APIVersion     string `json:"api_version,omitempty"`
	OSType         string `json:"os_type,omitempty"`
	BuilderVersion string `json:"builder_version,omitempty"`
	BuildTime      string `json:"build_time,omitempty"`
}

// swagger:response statusResponse
type Status struct {
	Tiers      []string `json:"tiers"`
	UUIDReader string   `json:"uuid_reader"`
	// IndexEntries is -1 when no dSYM index is configured
	IndexEntries int64 `json:"index_entries"`
}

// swagger:response genericError
type GenericError struct {
	Error string `json:"error"`
}

// SymbolicateRequest is the body of POST /v1/symbolicate
type SymbolicateRequest struct {
	Path          string   `json:"path" binding:"required"`
	DSYMs         []string `json:"dsyms"`
	Discover      bool     `json:"discover"`
	Output        string   `json:"output"`
	TranslateOnly bool     `json:"translate_only"`
	DryRun        bool     `json:"dry_run"`
}

// swagger:response symbolicateResponse
type SymbolicateResponse struct {
	Report     string                   `json:"report"`
	Output     string                   `json:"output,omitempty"`
	Translated bool                     `json:"translated"`
	Header     *crashlog.Metadata       `json:"header,omitempty"`
	Missing    []crashlog.Requirement   `json:"missing,omitempty"`
	Discovered []discovery.SearchResult `json:"discovered,omitempty"`
	Result     *symbolicate.Result      `json:"result,omitempty"`
	Content    string                   `json:"content,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// swagger:response requirementsResponse
type RequirementsResponse struct {
	Report       string                 `json:"report"`
	Header       *crashlog.Metadata     `json:"header,omitempty"`
	Requirements *crashlog.Requirements `json:"requirements"`
}

// swagger:response dsymResponse
type DSYMResponse struct {
	*dsym.File
	Binary string `json:"binary"`
}
