package crashlog

import (
	"regexp"
	"strings"
	"sync"

	"github.com/apex/log"
)

var (
	sectionRE       = regexp.MustCompile(`(?m)^[ \t]*(?:Process|Command):[ \t]*(?P<name>[^\r\n]*)$`)
	pidSuffixRE     = regexp.MustCompile(`\s*\[\d+\]\s*$`)
	imagesHeaderRE  = regexp.MustCompile(`(?m)^[ \t]*Binary Images:[ \t]*\r?$`)
	crashFrameRE    = regexp.MustCompile(`^[ \t]*(?P<index>\d+)[ \t]+(?P<target>\S.*?)[ \t]+(?P<addr>0x[[:xdigit:]]+)[ \t]+(?P<third>\S.*?)[ \t]+\+[ \t]+(?P<offset>\d+)`)
	sampleFrameRE   = regexp.MustCompile(`\?\?\?[ \t]+\(in[ \t]+(?P<target>.+?)\)[ \t]+load address[ \t]+(?P<load>0x[[:xdigit:]]+)[ \t]+\+[ \t]+(?P<offset>0x[[:xdigit:]]+|\d+)[ \t]+\[(?P<addr>0x[[:xdigit:]]+)\]`)
	spindumpFrameRE = regexp.MustCompile(`(?P<count>\d+)[ \t]+\?\?\?[ \t]+\((?P<target>.+?)[ \t]+\+[ \t]+(?P<offset>0x[[:xdigit:]]+|\d+)\)[ \t]+\[(?P<addr>0x[[:xdigit:]]+)\]`)
	hexTokenRE      = regexp.MustCompile(`^0x[[:xdigit:]]+$`)
)

// Process is one process section of a report
type Process struct {
	Name string
	// Arch is empty when no architecture could be detected
	Arch   Arch
	Images *ImageRegistry
	Frames []StackFrame
	// UnresolvedFrames counts frame lines whose binary image is not in Images
	UnresolvedFrames int

	classify SystemClassifier
	reqOnce  sync.Once
	req      *Requirements
}

// HasArch returns true if an architecture was detected for the process
func (p *Process) HasArch() bool {
	return p.Arch != ""
}

// Requirements returns the dSYMs the process's frames need. It is computed once.
func (p *Process) Requirements() *Requirements {
	p.reqOnce.Do(func() {
		p.req = resolveRequirements(p.Frames, p.classify)
	})
	return p.req
}

// splitSections splits content into process sections. Text before the first
// section header is returned as the preamble.
func splitSections(content string) (preamble string, sections []string) {
	locs := sectionRE.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return content, nil
	}
	preamble = content[:locs[0][0]]
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, content[loc[0]:end])
	}
	return preamble, sections
}

func parseProcess(section string, fallback Arch, classify SystemClassifier) *Process {
	proc := &Process{classify: classify}

	if m := sectionRE.FindStringSubmatch(section); m != nil {
		proc.Name = strings.TrimSpace(pidSuffixRE.ReplaceAllString(Named(sectionRE, m, "name"), ""))
	}

	images := parseImages(section)
	proc.Images = NewImageRegistry(images)

	if arch, ok := FindArch(section); ok {
		proc.Arch = arch
	} else if fallback != "" {
		proc.Arch = fallback
	}
	if proc.Arch.Incomplete() {
		for _, img := range images {
			if img.Arch != "" {
				log.WithFields(log.Fields{
					"process": proc.Name,
					"arch":    img.Arch,
				}).Debug("Refined architecture from binary images")
				proc.Arch = img.Arch
				break
			}
		}
	}

	proc.Frames, proc.UnresolvedFrames = parseFrames(section, proc.Images)

	return proc
}

// parseImages parses the "Binary Images:" table, which ends at the first blank line
func parseImages(section string) []*BinaryImage {
	loc := imagesHeaderRE.FindStringIndex(section)
	if loc == nil {
		return nil
	}

	var images []*BinaryImage
	for _, line := range strings.Split(section[loc[1]:], "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			if len(images) > 0 {
				break
			}
			continue
		}
		if img, ok := ParseBinaryImage(line); ok {
			images = append(images, img)
		}
	}

	return images
}

func parseFrames(section string, registry *ImageRegistry) (frames []StackFrame, unresolved int) {
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimRight(line, "\r")
		frame, ok := parseFrame(line, registry)
		switch {
		case !ok:
		case frame.Image == nil:
			unresolved++
		default:
			frames = append(frames, frame)
		}
	}
	return frames, unresolved
}

// parseFrame tries the crash, sample and spindump grammars in that order.
// A matched line whose image cannot be resolved has a nil Image.
func parseFrame(line string, registry *ImageRegistry) (StackFrame, bool) {
	if m := crashFrameRE.FindStringSubmatch(line); m != nil {
		target := Named(crashFrameRE, m, "target")
		if !strings.HasPrefix(target, "???") {
			return crashFrame(m, registry)
		}
	}
	if m := sampleFrameRE.FindStringSubmatch(line); m != nil {
		img, _ := registry.Lookup(Named(sampleFrameRE, m, "load"), Named(sampleFrameRE, m, "target"))
		return StackFrame{
			Address:     Named(sampleFrameRE, m, "addr"),
			ByteOffset:  Named(sampleFrameRE, m, "offset"),
			Image:       img,
			Recommended: true,
			RawText:     m[0],
			Hint:        AddressingHint{Kind: HintSample, Token: Named(sampleFrameRE, m, "load")},
		}, true
	}
	if m := spindumpFrameRE.FindStringSubmatch(line); m != nil {
		target := Named(spindumpFrameRE, m, "target")
		img, _ := registry.ByName(target)
		return StackFrame{
			Address:     Named(spindumpFrameRE, m, "addr"),
			ByteOffset:  Named(spindumpFrameRE, m, "offset"),
			Image:       img,
			Recommended: true,
			RawText:     m[0],
			Hint:        AddressingHint{Kind: HintSpindump, Token: target},
		}, true
	}
	return StackFrame{}, false
}

func crashFrame(m []string, registry *ImageRegistry) (StackFrame, bool) {
	target := Named(crashFrameRE, m, "target")
	third := Named(crashFrameRE, m, "third")

	frame := StackFrame{
		Address:     Named(crashFrameRE, m, "addr"),
		ByteOffset:  Named(crashFrameRE, m, "offset"),
		Recommended: true,
		RawText:     m[0],
	}

	var (
		img *BinaryImage
		ok  bool
	)
	switch {
	case hexTokenRE.MatchString(third):
		frame.Hint = AddressingHint{Kind: HintLoadAddress, Token: third}
		img, ok = registry.Lookup(third, target)
	case third == target:
		frame.Hint = AddressingHint{Kind: HintTargetName, Token: third}
		img, ok = registry.ByName(target)
	default:
		frame.Hint = AddressingHint{Kind: HintSymbol, Token: third}
		frame.Recommended = false
		img, ok = registry.ByName(target)
	}
	if ok {
		frame.Image = img
	}

	return frame, true
}
