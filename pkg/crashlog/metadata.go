package crashlog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Platform is the platform code recorded in an ips header
type Platform int

var platformNames = map[Platform]string{
	1: "macOS",
	2: "iOS",
	3: "tvOS",
	4: "watchOS",
	6: "Mac Catalyst",
	7: "iOS Simulator",
	8: "tvOS Simulator",
	9: "watchOS Simulator",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("platform %d", int(p))
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.00 -0700",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339Nano,
}

// Timestamp is the capture time of a report
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unknown timestamp format %q", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Format(time.RFC3339))
}

// Metadata is the JSON line heading an .ips report
type Metadata struct {
	Name         string     `json:"name,omitempty"`
	AppName      string     `json:"app_name,omitempty"`
	AppVersion   string     `json:"app_version,omitempty"`
	BuildVersion string     `json:"build_version,omitempty"`
	BundleID     string     `json:"bundleID,omitempty"`
	BugType      string     `json:"bug_type,omitempty"`
	OSVersion    string     `json:"os_version,omitempty"`
	IncidentID   string     `json:"incident_id,omitempty"`
	SliceUUID    string     `json:"slice_uuid,omitempty"`
	Platform     Platform   `json:"platform,omitempty"`
	Timestamp    *Timestamp `json:"timestamp,omitempty"`
}

var osReleaseRE = regexp.MustCompile(`(?P<version>[0-9.]+) \((?P<build>\w+)\)$`)

// OSRelease splits os_version ("iPhone OS 17.1 (21B80)") into version and
// build. build is empty when the string has no build suffix.
func (m *Metadata) OSRelease() (version, build string) {
	match := osReleaseRE.FindStringSubmatch(m.OSVersion)
	if match == nil {
		return m.OSVersion, ""
	}
	return Named(osReleaseRE, match, "version"), Named(osReleaseRE, match, "build")
}

// Title names the crashed app, e.g. "CrashingTest 1.0 (5)"
func (m *Metadata) Title() string {
	name := m.AppName
	if name == "" {
		name = m.Name
	}
	if m.AppVersion != "" {
		name += " " + m.AppVersion
	}
	if m.BuildVersion != "" {
		name += " (" + m.BuildVersion + ")"
	}
	return strings.TrimSpace(name)
}

// OS describes where the report was captured, e.g. "iOS 17.1 (21B80)"
func (m *Metadata) OS() string {
	version, build := m.OSRelease()
	var parts []string
	if m.Platform != 0 {
		parts = append(parts, m.Platform.String())
	}
	if version != "" {
		parts = append(parts, version)
	}
	if build != "" {
		parts = append(parts, "("+build+")")
	}
	return strings.Join(parts, " ")
}

// ParseMetadata decodes a JSON header line
func ParseMetadata(line string) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal([]byte(line), &md); err != nil {
		return nil, fmt.Errorf("failed to decode JSON header: %w", err)
	}
	return &md, nil
}

// splitMetadata splits off a leading JSON header line. It returns an empty
// header when content does not start with '{'.
func splitMetadata(content string) (header, body string) {
	if !strings.HasPrefix(content, "{") {
		return "", content
	}
	idx := strings.IndexByte(content, '\n')
	if idx < 0 {
		return content, ""
	}
	return strings.TrimRight(content[:idx], "\r"), content[idx+1:]
}

// looksLikeJSON returns true if text is a JSON document rather than report text
func looksLikeJSON(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "{")
}
