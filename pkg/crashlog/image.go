package crashlog

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/blacktop/symbolicator/internal/utils"
)

// DefaultSystemPrefixes are the image path prefixes treated as OS images
var DefaultSystemPrefixes = []string{
	"/System/",
	"/usr/lib/",
	"/usr/libexec/",
	"/Library/Apple/",
}

var (
	imageRE = regexp.MustCompile(
		`^\s*\*?(?P<start>0x[[:xdigit:]]+)\s*-\s*(?:(?:0x)?[[:xdigit:]]+|\?\?\?)?\s+(?P<plus>\+)?(?P<ident>\S.*?)\s+.*?<?(?P<uuid>[[:xdigit:]]{8}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{12}|[[:xdigit:]]{32})>?\s+(?P<path>/.*?)\s*$`)
	imageArchRE = regexp.MustCompile(`\s(?P<arch>armv[4-8][a-z]*|arm64[a-z0-9_]*|arm|i386|x86_64h?)\s`)
)

// BinaryImage is one entry of a report's "Binary Images:" table
type BinaryImage struct {
	Name        string `json:"name"`
	UUID        UUID   `json:"uuid"`
	LoadAddress string `json:"load_address"`
	Path        string `json:"path,omitempty"`
	Arch        Arch   `json:"arch,omitempty"`
	// Identifier is the first token of the image line, often a bundle identifier
	Identifier string `json:"identifier,omitempty"`
	// UserMarked is set for images the report flags with '+' as not part of the OS
	UserMarked bool `json:"user,omitempty"`
}

// Equal compares the identifying fields of two images
func (i BinaryImage) Equal(o BinaryImage) bool {
	return i.Name == o.Name && i.UUID == o.UUID && i.LoadAddress == o.LoadAddress
}

func (i BinaryImage) String() string {
	return fmt.Sprintf("%s %s <%s> %s", i.LoadAddress, i.Name, i.UUID.Pretty(), i.Path)
}

// ParseBinaryImage parses a single binary image table line
func ParseBinaryImage(line string) (*BinaryImage, bool) {
	loc := imageRE.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, false
	}
	group := func(name string) string {
		idx := imageRE.SubexpIndex(name)
		if loc[2*idx] < 0 {
			return ""
		}
		return line[loc[2*idx]:loc[2*idx+1]]
	}

	uuid, ok := ParseUUID(group("uuid"))
	if !ok {
		return nil, false
	}
	load, ok := NormalizeAddress(group("start"))
	if !ok {
		return nil, false
	}
	imgPath := group("path")

	img := &BinaryImage{
		Name:        path.Base(imgPath),
		UUID:        uuid,
		LoadAddress: load,
		Path:        imgPath,
		Identifier:  group("ident"),
		UserMarked:  group("plus") == "+",
	}

	// arch token lives between the identifier and the UUID
	uuidStart := loc[2*imageRE.SubexpIndex("uuid")]
	if m := imageArchRE.FindStringSubmatch(line[:uuidStart]); m != nil {
		if arch, ok := ParseArch(m[1]); ok {
			img.Arch = arch
		}
	}

	return img, true
}

// NormalizeAddress returns the canonical 0x-prefixed lowercase form of a hex address
func NormalizeAddress(addr string) (string, bool) {
	v, err := utils.ConvertHexToInt(addr)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%#x", v), true
}

// SystemClassifier decides whether an image belongs to the OS
type SystemClassifier func(img BinaryImage) bool

// PathPrefixClassifier classifies images by path prefix. Images the report
// marks as user code are never system images.
func PathPrefixClassifier(prefixes []string) SystemClassifier {
	return func(img BinaryImage) bool {
		if img.UserMarked {
			return false
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(img.Path, prefix) {
				return true
			}
		}
		return false
	}
}

// DefaultSystemClassifier uses DefaultSystemPrefixes
var DefaultSystemClassifier = PathPrefixClassifier(DefaultSystemPrefixes)

// ImageRegistry indexes a process's binary images by name and load address.
// When two images share a key the later one wins. Identifiers are registered
// as name aliases but never shadow a real binary name.
type ImageRegistry struct {
	images        []*BinaryImage
	byName        map[string]*BinaryImage
	byLoadAddress map[string]*BinaryImage
}

// NewImageRegistry builds the lookup maps for images
func NewImageRegistry(images []*BinaryImage) *ImageRegistry {
	r := &ImageRegistry{
		images:        images,
		byName:        make(map[string]*BinaryImage, len(images)),
		byLoadAddress: make(map[string]*BinaryImage, len(images)),
	}
	for _, img := range images {
		if img.Identifier != "" && img.Identifier != img.Name {
			r.byName[img.Identifier] = img
		}
	}
	for _, img := range images {
		r.byName[img.Name] = img
		r.byLoadAddress[img.LoadAddress] = img
	}
	return r
}

// Images returns the images in table order
func (r *ImageRegistry) Images() []*BinaryImage {
	return r.images
}

// Len returns the number of images in the table
func (r *ImageRegistry) Len() int {
	return len(r.images)
}

// ByName looks up an image by binary name
func (r *ImageRegistry) ByName(name string) (*BinaryImage, bool) {
	img, ok := r.byName[name]
	return img, ok
}

// ByLoadAddress looks up an image by load address in any hex form
func (r *ImageRegistry) ByLoadAddress(addr string) (*BinaryImage, bool) {
	norm, ok := NormalizeAddress(addr)
	if !ok {
		return nil, false
	}
	img, ok := r.byLoadAddress[norm]
	return img, ok
}

// Lookup tries the load address first and then the name
func (r *ImageRegistry) Lookup(loadAddress, name string) (*BinaryImage, bool) {
	if loadAddress != "" {
		if img, ok := r.ByLoadAddress(loadAddress); ok {
			return img, true
		}
	}
	if name != "" {
		return r.ByName(name)
	}
	return nil, false
}
