package crashlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
)

// Translator converts a JSON (.ips) report into the legacy text format
type Translator interface {
	Translate(ctx context.Context, path string, data []byte) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface
type TranslatorFunc func(ctx context.Context, path string, data []byte) (string, error)

// Translate implements Translator
func (f TranslatorFunc) Translate(ctx context.Context, path string, data []byte) (string, error) {
	return f(ctx, path, data)
}

// Option configures how a report is loaded
type Option func(*options)

type options struct {
	translator Translator
	classify   SystemClassifier
}

// WithTranslator sets the translator used for JSON reports
func WithTranslator(t Translator) Option {
	return func(o *options) { o.translator = t }
}

// WithSystemClassifier sets the predicate deciding which images belong to the OS
func WithSystemClassifier(c SystemClassifier) Option {
	return func(o *options) {
		if c != nil {
			o.classify = c
		}
	}
}

// Report is a loaded crash, sample or spindump report
type Report struct {
	Path string
	// Content is the report text after translation (if any)
	Content string
	// Metadata is the raw JSON header line, empty if the report had none
	Metadata string
	// Header is the decoded Metadata, nil if absent or undecodable
	Header *Metadata
	// Translated is true if Content was produced by a Translator
	Translated bool

	classify  SystemClassifier
	procOnce  sync.Once
	processes []*Process
	reqOnce   sync.Once
	req       *Requirements
}

// Open reads, translates (if needed) and parses the report at path
func Open(ctx context.Context, path string, opts ...Option) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFileRead, path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return load(ctx, path, data, opts...)
}

// Parse parses report text held in memory; path is only used for translation
// and naming the output.
func Parse(ctx context.Context, path string, data []byte, opts ...Option) (*Report, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}
	return load(ctx, path, data, opts...)
}

func load(ctx context.Context, path string, data []byte, opts ...Option) (*Report, error) {
	o := options{
		translator: IPSTranslator{},
		classify:   DefaultSystemClassifier,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{Path: path, classify: o.classify}

	header, body := splitMetadata(string(data))
	r.Metadata = header
	if header != "" {
		if md, err := ParseMetadata(header); err == nil {
			r.Header = md
		} else {
			log.WithError(err).Debug("Ignoring undecodable report header")
		}
	}

	if header != "" && (strings.TrimSpace(body) == "" || looksLikeJSON(body)) {
		if o.translator == nil {
			return nil, fmt.Errorf("%w: no translator configured for JSON report", ErrTranslation)
		}
		text, err := o.translator.Translate(ctx, path, data)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrTranslation, path, err)
		}
		if strings.TrimSpace(text) == "" || looksLikeJSON(text) {
			return nil, fmt.Errorf("%w %s: translator returned no report text", ErrTranslation, path)
		}
		r.Content = text
		r.Translated = true
	} else {
		r.Content = body
	}

	if len(r.Processes()) == 0 {
		return nil, fmt.Errorf("%w: no processes found in %s", ErrUnsupportedFormat, path)
	}

	return r, nil
}

// Processes returns the report's process sections. They are parsed once.
func (r *Report) Processes() []*Process {
	r.procOnce.Do(func() {
		preamble, sections := splitSections(r.Content)
		fallback, _ := FindArch(preamble)
		for _, section := range sections {
			r.processes = append(r.processes, parseProcess(section, fallback, r.classify))
		}
	})
	return r.processes
}

// Requirements returns the union of all processes' requirements. It is computed once.
func (r *Report) Requirements() *Requirements {
	r.reqOnce.Do(func() {
		var reqs []*Requirements
		for _, proc := range r.Processes() {
			reqs = append(reqs, proc.Requirements())
		}
		r.req = CombineRequirements(reqs...)
	})
	return r.req
}

// Dir returns the directory containing the report
func (r *Report) Dir() string {
	return filepath.Dir(r.Path)
}

// OutputPath returns the sibling path symbolicated output is written to:
// <stem>_symbolicated.<ext>
func OutputPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + "_symbolicated" + ext
}
