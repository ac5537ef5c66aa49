package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

func init() {
	Register("http", createHTTPSource)
	Register("https", createHTTPSource)
}

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxListSize  = 32 << 20
)

type httpSource struct {
	key     string
	link    string
	format  string
	maxSize int64
	client  *http.Client
}

func createHTTPSource(scheme string, uri *url.URL, params *LinkParams) (ISource, error) {
	timeout := defaultFetchTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Second
	}
	maxSize := int64(defaultMaxListSize)
	if params.MaxSize > 0 {
		maxSize = params.MaxSize
	}
	// control params are ours, the list server should not see them
	fetch := *uri
	q := fetch.Query()
	q.Del("timeout")
	q.Del("max_size")
	q.Del("format")
	fetch.RawQuery = q.Encode()
	return &httpSource{
		key:     uri.String(),
		link:    fetch.String(),
		format:  params.Format,
		maxSize: maxSize,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *httpSource) Key() string {
	return s.key
}

func (s *httpSource) Fetch(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.link, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request failed, err:%w", err)
	}
	rsp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch list failed, err:%w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch list failed, status:%d", rsp.StatusCode)
	}
	lines, err := readLines(io.LimitReader(rsp.Body, s.maxSize))
	if err != nil {
		return nil, err
	}
	return ParseLines(lines, s.format), nil
}
