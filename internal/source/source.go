package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/schema"
	"golang.org/x/sync/errgroup"
)

// LinkParams are the control knobs carried in a source link's query string,
// e.g. "https://host/easylist.txt?timeout=60&format=abp".
type LinkParams struct {
	Timeout  int64    `schema:"timeout"`
	MaxSize  int64    `schema:"max_size"`
	Format   string   `schema:"format"`
	Category []string `schema:"category"`
}

// Payload is the usable outcome of one source fetch: block rules plus the
// allowlist exceptions split out of them.
type Payload struct {
	Rules      []string
	Exceptions []string
}

func (p *Payload) merge(other *Payload) {
	if other == nil {
		return
	}
	p.Rules = append(p.Rules, other.Rules...)
	p.Exceptions = append(p.Exceptions, other.Exceptions...)
}

// ISource supplies blocklist content from one configured location.
type ISource interface {
	Key() string
	Fetch(ctx context.Context) (*Payload, error)
}

type Factory func(scheme string, uri *url.URL, params *LinkParams) (ISource, error)

var m = make(map[string]Factory)

func Register(scheme string, fac Factory) {
	m[scheme] = fac
}

func MakeSources(links []string) ([]ISource, error) {
	rs := make([]ISource, 0, len(links))
	for _, item := range links {
		r, err := MakeSource(item)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

func MakeSource(link string) (ISource, error) {
	uri, err := url.Parse(link)
	if err != nil {
		return nil, err
	}
	cr, ok := m[uri.Scheme]
	if !ok {
		return nil, fmt.Errorf("no source type found, type:%s", uri.Scheme)
	}
	params := &LinkParams{}
	if err := decodeParams(params, uri.Query()); err != nil {
		return nil, err
	}
	return cr(uri.Scheme, uri, params)
}

func decodeParams(out interface{}, in map[string][]string) error {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	if err := d.Decode(out, in); err != nil {
		return err
	}
	return nil
}

// FetchAll retrieves every source concurrently and merges the payloads in
// configuration order, so later lists keep their documented precedence.
func FetchAll(ctx context.Context, srcs []ISource, concurrent int) (*Payload, error) {
	if concurrent <= 0 {
		concurrent = 4
	}
	results := make([]*Payload, len(srcs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrent)
	for i, src := range srcs {
		eg.Go(func() error {
			payload, err := src.Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch source failed, key:%s, err:%w", src.Key(), err)
			}
			results[i] = payload
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	merged := &Payload{}
	for _, payload := range results {
		merged.merge(payload)
	}
	return merged, nil
}
