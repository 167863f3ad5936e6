package crashlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// REFERENCES:
//     - https://developer.apple.com/documentation/xcode/interpreting-the-json-format-of-a-crash-report

const bugTypeCrash = "309"

type ipsFrame struct {
	ImageIndex     int    `json:"imageIndex"`
	ImageOffset    uint64 `json:"imageOffset"`
	Symbol         string `json:"symbol,omitempty"`
	SymbolLocation uint64 `json:"symbolLocation,omitempty"`
}

type ipsThread struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Queue     string     `json:"queue,omitempty"`
	Triggered bool       `json:"triggered,omitempty"`
	Frames    []ipsFrame `json:"frames"`
}

type ipsImage struct {
	Arch   string `json:"arch,omitempty"`
	Base   uint64 `json:"base"`
	Size   uint64 `json:"size,omitempty"`
	Name   string `json:"name,omitempty"`
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`
	UUID   string `json:"uuid,omitempty"`
}

type ipsPayload struct {
	ProcName   string `json:"procName"`
	ProcPath   string `json:"procPath"`
	PID        int    `json:"pid"`
	CPUType    string `json:"cpuType"`
	BugType    string `json:"bug_type"`
	BundleInfo struct {
		CFBundleIdentifier         string `json:"CFBundleIdentifier,omitempty"`
		CFBundleShortVersionString string `json:"CFBundleShortVersionString,omitempty"`
	} `json:"bundleInfo"`
	OsVersion struct {
		Train string `json:"train,omitempty"`
		Build string `json:"build,omitempty"`
	} `json:"osVersion"`
	CaptureTime string `json:"captureTime,omitempty"`
	Exception   struct {
		Type    string `json:"type,omitempty"`
		Signal  string `json:"signal,omitempty"`
		Subtype string `json:"subtype,omitempty"`
	} `json:"exception"`
	FaultingThread         int         `json:"faultingThread"`
	Threads                []ipsThread `json:"threads"`
	LastExceptionBacktrace []ipsFrame  `json:"lastExceptionBacktrace,omitempty"`
	UsedImages             []ipsImage  `json:"usedImages"`
}

// IPSTranslator renders JSON crash reports (bug type 309) in the legacy
// text format. Other bug types are not supported.
type IPSTranslator struct{}

// Translate implements Translator
func (IPSTranslator) Translate(ctx context.Context, path string, data []byte) (string, error) {
	header, body := splitMetadata(string(data))

	var bugType string
	if header != "" && looksLikeJSON(body) {
		md, err := ParseMetadata(header)
		if err != nil {
			return "", err
		}
		bugType = md.BugType
	} else {
		body = string(data)
	}

	var payload ipsPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", fmt.Errorf("failed to decode JSON payload: %w", err)
	}
	if bugType == "" {
		bugType = payload.BugType
	}
	if bugType != bugTypeCrash {
		return "", fmt.Errorf("unsupported bug_type %q", bugType)
	}
	if len(payload.Threads) == 0 {
		return "", fmt.Errorf("report has no threads")
	}

	return payload.render(), nil
}

func (p *ipsPayload) render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Process:               %s [%d]\n", p.ProcName, p.PID)
	fmt.Fprintf(&sb, "Path:                  %s\n", p.ProcPath)
	if p.BundleInfo.CFBundleIdentifier != "" {
		fmt.Fprintf(&sb, "Identifier:            %s\n", p.BundleInfo.CFBundleIdentifier)
	}
	if p.BundleInfo.CFBundleShortVersionString != "" {
		fmt.Fprintf(&sb, "Version:               %s\n", p.BundleInfo.CFBundleShortVersionString)
	}
	fmt.Fprintf(&sb, "Code Type:             %s (Native)\n", p.CPUType)
	if p.OsVersion.Train != "" {
		fmt.Fprintf(&sb, "OS Version:            %s (%s)\n", p.OsVersion.Train, p.OsVersion.Build)
	}
	if p.CaptureTime != "" {
		fmt.Fprintf(&sb, "Date/Time:             %s\n", p.CaptureTime)
	}
	sb.WriteString("\n")
	if p.Exception.Type != "" {
		fmt.Fprintf(&sb, "Exception Type:        %s (%s)\n", p.Exception.Type, p.Exception.Signal)
		if p.Exception.Subtype != "" {
			fmt.Fprintf(&sb, "Exception Codes:       %s\n", p.Exception.Subtype)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Triggered by Thread:  %d\n\n", p.FaultingThread)

	if len(p.LastExceptionBacktrace) > 0 {
		sb.WriteString("Last Exception Backtrace:\n")
		p.renderFrames(&sb, p.LastExceptionBacktrace)
		sb.WriteString("\n")
	}

	for idx, thread := range p.Threads {
		fmt.Fprintf(&sb, "Thread %d", idx)
		if thread.Triggered {
			sb.WriteString(" Crashed")
		}
		sb.WriteString(":")
		if thread.Name != "" {
			fmt.Fprintf(&sb, ": %s", thread.Name)
		}
		if thread.Queue != "" {
			fmt.Fprintf(&sb, ":  Dispatch queue: %s", thread.Queue)
		}
		sb.WriteString("\n")
		p.renderFrames(&sb, thread.Frames)
		sb.WriteString("\n")
	}

	sb.WriteString("Binary Images:\n")
	for _, img := range p.UsedImages {
		if img.UUID == "" || img.Path == "" {
			continue
		}
		end := img.Base
		if img.Size > 0 {
			end = img.Base + img.Size - 1
		}
		arch := ""
		if img.Arch != "" {
			arch = " " + img.Arch
		}
		uuid := img.UUID
		if u, ok := ParseUUID(img.UUID); ok {
			uuid = u.Pretty()
		}
		fmt.Fprintf(&sb, "%#18x - %#18x %s%s <%s> %s\n", img.Base, end, p.imageName(img), arch, uuid, img.Path)
	}

	return sb.String()
}

func (p *ipsPayload) renderFrames(sb *strings.Builder, frames []ipsFrame) {
	for idx, frame := range frames {
		var img ipsImage
		if frame.ImageIndex >= 0 && frame.ImageIndex < len(p.UsedImages) {
			img = p.UsedImages[frame.ImageIndex]
		}
		name := p.imageName(img)
		addr := img.Base + frame.ImageOffset
		if frame.Symbol != "" {
			fmt.Fprintf(sb, "%-3d %-30s\t0x%016x %s + %d\n", idx, name, addr, frame.Symbol, frame.SymbolLocation)
		} else {
			fmt.Fprintf(sb, "%-3d %-30s\t0x%016x %#x + %d\n", idx, name, addr, img.Base, frame.ImageOffset)
		}
	}
}

func (p *ipsPayload) imageName(img ipsImage) string {
	if img.Name != "" {
		return img.Name
	}
	if img.Path != "" {
		parts := strings.Split(img.Path, "/")
		return parts[len(parts)-1]
	}
	return "???"
}
