// Package manifest reads route declarations from YAML and feeds them to an
// index builder.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"routecore/pkg/httpx"
	"routecore/pkg/registry"
	"routecore/pkg/routing"
)

// Manifest is the file layout:
//
//	middleware:           # prepended to every route
//	  - Telemetry::requestId
//	routes:
//	  - method: GET
//	    path: /hello
//	    handler: Handlers::hello
//	    middleware:
//	      - Auth::apiKey
type Manifest struct {
	Middleware []string `yaml:"middleware"`
	Routes     []Route  `yaml:"routes"`
}

// Route declares one or more (method, path) bindings. Methods and Method
// may both be set; they are merged.
type Route struct {
	Method     string   `yaml:"method"`
	Methods    []string `yaml:"methods"`
	Path       string   `yaml:"path"`
	Handler    string   `yaml:"handler"`
	Middleware []string `yaml:"middleware"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Build registers every route on maker and returns the finished index. The
// first failing route aborts the build and no index is returned.
func (m *Manifest) Build(reg *registry.Registry, maker routing.IndexMaker) (routing.Index, error) {
	global, err := refs(m.Middleware)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}
	for i, r := range m.Routes {
		methods, err := r.methods()
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i, r.Path, err)
		}
		handler, err := registry.ParseRef(r.Handler)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): handler: %w", i, r.Path, err)
		}
		local, err := refs(r.Middleware)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): middleware: %w", i, r.Path, err)
		}
		mw := append(append([]registry.Ref(nil), global...), local...)
		for _, method := range methods {
			if err := maker.AddEndpoint(method, r.Path, routing.NewEndpoint(reg, handler, mw...)); err != nil {
				return nil, fmt.Errorf("route %d: %w", i, err)
			}
		}
	}
	return maker.Make(), nil
}

func (r Route) methods() ([]httpx.Method, error) {
	raw := r.Methods
	if r.Method != "" {
		raw = append([]string{r.Method}, raw...)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no method")
	}
	seen := map[httpx.Method]bool{}
	var out []httpx.Method
	for _, s := range raw {
		m, err := httpx.ParseMethod(s)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

func refs(raw []string) ([]registry.Ref, error) {
	out := make([]registry.Ref, 0, len(raw))
	for _, s := range raw {
		r, err := registry.ParseRef(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
