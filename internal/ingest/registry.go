package ingest

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

const (
	KindIndex    = "index"
	KindList     = "list"
	KindVenue    = "venue"
	KindBulletin = "bulletin"

	FetcherHTTP  = "http"
	FetcherColly = "colly"

	DefaultMaxItems      = 200
	DefaultDocumentPages = 12
	DefaultNotes         = "自动生成的广州活动数据（已过滤打卡/探店关键词）。"
)

// Registry holds the run-wide settings and every configured source, in the
// order they are collected.
type Registry struct {
	Notes    string         `yaml:"notes"`
	MaxItems int            `yaml:"max_items"`
	Filter   FilterConfig   `yaml:"filter"`
	Sources  []SourceConfig `yaml:"sources"`
}

type FilterConfig struct {
	Hard []string `yaml:"hard"`
	Soft []string `yaml:"soft"`
}

// SourceConfig defines a single source. Which fields matter depends on Kind.
type SourceConfig struct {
	ID      string  `yaml:"id"`
	Kind    string  `yaml:"kind"`
	Enabled *bool   `yaml:"enabled,omitempty"`
	Fetcher string  `yaml:"fetcher,omitempty"`
	Priors  Partial `yaml:"priors,omitempty"`

	// index
	URL             string   `yaml:"url,omitempty"`
	KeywordsAll     []string `yaml:"keywords_all,omitempty"`
	KeywordsAny     []string `yaml:"keywords_any,omitempty"`
	MaxLinks        int      `yaml:"max_links,omitempty"`
	FollowDocuments bool     `yaml:"follow_documents,omitempty"`

	// list
	Categories  []CategoryConfig `yaml:"categories,omitempty"`
	LinkPattern string           `yaml:"link_pattern,omitempty"`
	PageStep    int              `yaml:"page_step,omitempty"`
	MaxPerPage  int              `yaml:"max_per_page,omitempty"`
	Detail      bool             `yaml:"detail,omitempty"`

	// list: listing pages per category. bulletin: decoded pages per document.
	MaxPages int `yaml:"max_pages,omitempty"`

	// venue
	Venues []VenueConfig `yaml:"venues,omitempty"`

	// bulletin
	Institution      string   `yaml:"institution,omitempty"`
	Pages            []string `yaml:"pages,omitempty"`
	DocumentKeywords []string `yaml:"document_keywords,omitempty"`
	MaxDocuments     int      `yaml:"max_documents,omitempty"`
}

// CategoryConfig is one list endpoint. Tag becomes the items' source;
// Label, when set, is prepended to their tags.
type CategoryConfig struct {
	URL   string `yaml:"url"`
	Tag   string `yaml:"tag"`
	Label string `yaml:"label,omitempty"`
}

type VenueConfig struct {
	Name     string   `yaml:"name"`
	Origin   string   `yaml:"origin"`
	Pages    []string `yaml:"pages"`
	Keywords []string `yaml:"keywords"`
	MinText  int      `yaml:"min_text"`
	Area     string   `yaml:"area"`
}

// IsEnabled defaults to true when the field is omitted.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Roots lists the URLs a source starts from, in configuration order.
func (s SourceConfig) Roots() []string {
	switch s.Kind {
	case KindIndex:
		return []string{s.URL}
	case KindList:
		roots := make([]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			roots = append(roots, c.URL)
		}
		return roots
	case KindVenue:
		var roots []string
		for _, v := range s.Venues {
			roots = append(roots, v.Pages...)
		}
		return roots
	case KindBulletin:
		return append([]string(nil), s.Pages...)
	}
	return nil
}

// LoadRegistry reads the registry at path, or the embedded sources.yaml when
// path is empty. ${VAR} references are expanded from the environment.
func LoadRegistry(path string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes, defaults and validates a registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	reg.applyDefaults()
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) applyDefaults() {
	if r.MaxItems <= 0 {
		r.MaxItems = DefaultMaxItems
	}
	if strings.TrimSpace(r.Notes) == "" {
		r.Notes = DefaultNotes
	}
	if r.Filter.Hard == nil {
		r.Filter.Hard = DefaultHardKeywords
	}
	if r.Filter.Soft == nil {
		r.Filter.Soft = DefaultSoftKeywords
	}
	for i := range r.Sources {
		s := &r.Sources[i]
		if s.Fetcher == "" {
			s.Fetcher = FetcherHTTP
		}
		switch s.Kind {
		case KindIndex:
			if s.MaxLinks <= 0 {
				s.MaxLinks = 3
			}
		case KindList:
			if s.MaxPages <= 0 {
				s.MaxPages = 1
			}
			if s.PageStep <= 0 {
				s.PageStep = 10
			}
			if s.MaxPerPage <= 0 {
				s.MaxPerPage = 30
			}
			if s.LinkPattern == "" {
				s.LinkPattern = `/event/\d+`
			}
		case KindBulletin:
			if s.MaxDocuments <= 0 {
				s.MaxDocuments = 2
			}
			if s.MaxPages <= 0 {
				s.MaxPages = DefaultDocumentPages
			}
		}
	}
}

// Validate reports the first configuration error. A registry that fails
// validation is fatal: nothing is fetched.
func (r *Registry) Validate() error {
	seen := map[string]bool{}
	for i, s := range r.Sources {
		if s.ID == "" {
			return fmt.Errorf("source #%d: missing id", i+1)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %s: duplicate id", s.ID)
		}
		seen[s.ID] = true

		if s.Fetcher != FetcherHTTP && s.Fetcher != FetcherColly {
			return fmt.Errorf("source %s: unknown fetcher %q", s.ID, s.Fetcher)
		}

		switch s.Kind {
		case KindIndex:
			if s.URL == "" {
				return fmt.Errorf("source %s: index needs url", s.ID)
			}
		case KindList:
			if len(s.Categories) == 0 {
				return fmt.Errorf("source %s: list needs categories", s.ID)
			}
			for _, c := range s.Categories {
				if c.URL == "" {
					return fmt.Errorf("source %s: category without url", s.ID)
				}
			}
			if _, err := regexp.Compile(s.LinkPattern); err != nil {
				return fmt.Errorf("source %s: bad link_pattern: %w", s.ID, err)
			}
		case KindVenue:
			if len(s.Venues) == 0 {
				return fmt.Errorf("source %s: venue needs venues", s.ID)
			}
			for _, v := range s.Venues {
				if originOf(v.Origin) == "" || len(v.Pages) == 0 {
					return fmt.Errorf("source %s: venue %q needs origin and pages", s.ID, v.Name)
				}
			}
		case KindBulletin:
			if len(s.Pages) == 0 {
				return fmt.Errorf("source %s: bulletin needs pages", s.ID)
			}
		default:
			return fmt.Errorf("source %s: unknown kind %q", s.ID, s.Kind)
		}
	}
	return nil
}

// EnabledSources returns the enabled sources in registry order.
func (r *Registry) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// RootURLs lists the root URLs of every enabled source; it becomes
// meta.sources.
func (r *Registry) RootURLs() []string {
	var out []string
	for _, s := range r.EnabledSources() {
		out = append(out, s.Roots()...)
	}
	return out
}

// Source returns the source with the given id.
func (r *Registry) Source(id string) (SourceConfig, bool) {
	for _, s := range r.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}
