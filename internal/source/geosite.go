package source

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/xxxsen/warden/internal/data/geosite"
)

func init() {
	Register("geosite", createGeositeSource)
}

// geositeSource pulls categories out of a v2ray geosite dataset, e.g.
// "geosite:///opt/warden/geosite.dat?category=category-ads-all".
type geositeSource struct {
	key        string
	path       string
	categories []string
}

func createGeositeSource(scheme string, uri *url.URL, params *LinkParams) (ISource, error) {
	path := uri.Path
	if uri.Host != "" {
		path = filepath.Join(uri.Host, path)
	}
	if path == "" {
		return nil, fmt.Errorf("geosite source needs a path, link:%s", uri.String())
	}
	if len(params.Category) == 0 {
		return nil, fmt.Errorf("geosite source needs at least one category, link:%s", uri.String())
	}
	return &geositeSource{
		key:        uri.String(),
		path:       path,
		categories: params.Category,
	}, nil
}

func (s *geositeSource) Key() string {
	return s.key
}

func (s *geositeSource) Fetch(ctx context.Context) (*Payload, error) {
	data, err := geosite.Shared.Load(s.path)
	if err != nil {
		return nil, err
	}
	p := &Payload{}
	for _, cat := range s.categories {
		domains, ok := data.Domains(strings.ToLower(strings.TrimSpace(cat)))
		if !ok {
			return nil, fmt.Errorf("category not found in geosite data, category:%s", cat)
		}
		for _, d := range domains {
			switch d.Type {
			case geosite.DomainTypeDomain, geosite.DomainTypeFull:
				p.Rules = append(p.Rules, "||"+d.Value+"^")
			case geosite.DomainTypePlain:
				p.Rules = append(p.Rules, d.Value)
			}
			// regex entries are skipped, the matcher does not take regexes
		}
	}
	return p, nil
}
