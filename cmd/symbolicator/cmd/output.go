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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/blacktop/symbolicator/internal/colors"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
	"gopkg.in/yaml.v3"
)

// printStructured writes v as JSON or YAML; it returns false if neither was asked for
func printStructured(w io.Writer, v any, asJSON, asYAML bool) (bool, error) {
	switch {
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case asYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func printHeader(w io.Writer, md *crashlog.Metadata) {
	if md == nil {
		return
	}
	fmt.Fprintf(w, "%s %s", colors.Field("Report"), md.Title())
	if where := md.OS(); where != "" {
		fmt.Fprintf(w, " on %s", where)
	}
	if md.Timestamp != nil {
		fmt.Fprintf(w, " at %s", md.Timestamp.Format("2006-01-02 15:04:05 -0700"))
	}
	fmt.Fprintln(w)
}

func printBucket(w io.Writer, title string, style func(a ...any) string, bucket map[crashlog.UUID]crashlog.Requirement) {
	if len(bucket) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d)\n", style(title), len(bucket))
	for _, req := range crashlog.SortedBucket(bucket) {
		fmt.Fprintf(w, "  %s  %s\n", colors.UUID(req.UUID.Pretty()), req.TargetName)
	}
}

func printRequirements(w io.Writer, req *crashlog.Requirements, system bool) {
	if req.Empty() && (!system || len(req.System) == 0) {
		fmt.Fprintln(w, "No dSYMs required")
		return
	}
	printBucket(w, "Recommended", colors.Recommended, req.Recommended)
	printBucket(w, "Optional", colors.Optional, req.Optional)
	if system {
		printBucket(w, "System", colors.System, req.System)
	}
}

func printDiscovered(w io.Writer, results []discovery.SearchResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s  %s  %s\n", colors.UUID(r.UUID.Pretty()), colors.Field(r.Tier), r.Path)
	}
}

func printResult(w io.Writer, res *symbolicate.Result) {
	for _, p := range res.Processes {
		status := colors.Success("ok")
		if !p.Succeeded() {
			status = colors.Failure(p.Error)
		}
		fmt.Fprintf(w, "%s %s [%s]: %s\n", colors.Field("Process"), p.Name, p.Arch, status)
		for _, g := range p.Groups {
			switch {
			case g.Skipped():
				fmt.Fprintf(w, "  %s %s  %s\n", g.Image, colors.UUID(g.UUID.Pretty()), colors.System("no dSYM"))
			case g.Err != nil:
				fmt.Fprintf(w, "  %s %s  %s\n", g.Image, colors.UUID(g.UUID.Pretty()), colors.Failure(g.Error))
			default:
				fmt.Fprintf(w, "  %s %s  %s\n", g.Image, colors.UUID(g.UUID.Pretty()), colors.Success(fmt.Sprintf("%d/%d frames", g.Replaced, g.Frames)))
			}
		}
	}
}

var stdout io.Writer = os.Stdout
