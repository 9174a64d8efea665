package model

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Option is one selectable field or horizon.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog lists the fields and horizons the dashboard offers, with indexed
// case-insensitive lookups.
type Catalog struct {
	Fields         []Option `yaml:"fields"`
	Horizons       []Option `yaml:"horizons"`
	DefaultField   string   `yaml:"default_field"`
	DefaultHorizon string   `yaml:"default_horizon"`

	fieldByKey   map[string]*Option
	horizonByKey map[string]*Option
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic("model: embedded catalog is invalid: " + err.Error())
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the
// embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML with a top-level "catalog" key.
func ParseCatalog(data []byte) (*Catalog, error) {
	var wrapper struct {
		Catalog Catalog `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}

	c := &wrapper.Catalog
	if len(c.Fields) == 0 {
		return nil, eris.New("catalog: no fields defined")
	}
	if len(c.Horizons) == 0 {
		return nil, eris.New("catalog: no horizons defined")
	}

	title := cases.Title(language.English)
	c.fieldByKey = make(map[string]*Option, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Label == "" {
			f.Label = title.String(strings.ReplaceAll(f.Value, "_", " "))
		}
		c.fieldByKey[key(f.Value)] = f
	}
	c.horizonByKey = make(map[string]*Option, len(c.Horizons))
	for i := range c.Horizons {
		h := &c.Horizons[i]
		if h.Label == "" {
			h.Label = title.String(strings.ReplaceAll(h.Value, "_", " "))
		}
		c.horizonByKey[key(h.Value)] = h
	}

	if c.DefaultField == "" {
		c.DefaultField = c.Fields[0].Value
	}
	if c.DefaultHorizon == "" {
		c.DefaultHorizon = c.Horizons[0].Value
	}
	return c, nil
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Field resolves a field case-insensitively to its catalog entry.
func (c *Catalog) Field(v string) (Option, bool) {
	f, ok := c.fieldByKey[key(v)]
	if !ok {
		return Option{}, false
	}
	return *f, true
}

// Horizon resolves a horizon case-insensitively to its catalog entry.
func (c *Catalog) Horizon(v string) (Option, bool) {
	h, ok := c.horizonByKey[key(v)]
	if !ok {
		return Option{}, false
	}
	return *h, true
}

// Default returns the initial filter.
func (c *Catalog) Default() Filter {
	return Filter{Field: c.DefaultField, Horizon: c.DefaultHorizon}
}

// Resolve validates f and returns it with canonical catalog values.
func (c *Catalog) Resolve(f Filter) (Filter, error) {
	field, ok := c.Field(f.Field)
	if !ok {
		return Filter{}, eris.Wrapf(ErrUnknownField, "%q", f.Field)
	}
	horizon, ok := c.Horizon(f.Horizon)
	if !ok {
		return Filter{}, eris.Wrapf(ErrUnknownHorizon, "%q", f.Horizon)
	}
	return Filter{Field: field.Value, Horizon: horizon.Value}, nil
}

// NextField returns the field after v, wrapping around.
func (c *Catalog) NextField(v string) string {
	return next(c.Fields, v)
}

// NextHorizon returns the horizon after v, wrapping around.
func (c *Catalog) NextHorizon(v string) string {
	return next(c.Horizons, v)
}

func next(opts []Option, v string) string {
	for i, o := range opts {
		if key(o.Value) == key(v) {
			return opts[(i+1)%len(opts)].Value
		}
	}
	return opts[0].Value
}
