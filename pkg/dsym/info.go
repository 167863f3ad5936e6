package dsym

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/blacktop/go-plist"
	"github.com/pkg/errors"
)

// BundleInfo is the Contents/Info.plist of a dSYM bundle
type BundleInfo struct {
	CFBundleIdentifier            string `plist:"CFBundleIdentifier,omitempty" json:"identifier,omitempty"`
	CFBundleName                  string `plist:"CFBundleName,omitempty" json:"name,omitempty"`
	CFBundleShortVersionString    string `plist:"CFBundleShortVersionString,omitempty" json:"version,omitempty"`
	CFBundleVersion               string `plist:"CFBundleVersion,omitempty" json:"build,omitempty"`
	CFBundleInfoDictionaryVersion string `plist:"CFBundleInfoDictionaryVersion,omitempty" json:"-"`
	CFBundlePackageType           string `plist:"CFBundlePackageType,omitempty" json:"-"`
}

// ReadBundleInfo parses <bundle>/Contents/Info.plist
func ReadBundleInfo(bundle string) (*BundleInfo, error) {
	data, err := os.ReadFile(filepath.Join(bundle, "Contents", "Info.plist"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Info.plist")
	}

	var info BundleInfo
	if err := plist.NewDecoder(bytes.NewReader(data)).Decode(&info); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s Info.plist", filepath.Base(bundle))
	}

	return &info, nil
}

// Identifier returns the bundle identifier without the dSYM prefix
func (i *BundleInfo) Identifier() string {
	const prefix = "com.apple.xcode.dsym."
	if len(i.CFBundleIdentifier) > len(prefix) && i.CFBundleIdentifier[:len(prefix)] == prefix {
		return i.CFBundleIdentifier[len(prefix):]
	}
	return i.CFBundleIdentifier
}
