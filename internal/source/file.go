package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

func init() {
	Register("file", createFileSource)
}

type fileSource struct {
	key    string
	path   string
	format string
}

func createFileSource(scheme string, uri *url.URL, params *LinkParams) (ISource, error) {
	path := uri.Path
	if uri.Host != "" {
		path = filepath.Join(uri.Host, path)
	}
	if path == "" {
		return nil, fmt.Errorf("file source needs a path, link:%s", uri.String())
	}
	return &fileSource{
		key:    uri.String(),
		path:   path,
		format: params.Format,
	}, nil
}

func (s *fileSource) Key() string {
	return s.key
}

func (s *fileSource) Fetch(ctx context.Context) (*Payload, error) {
	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		return nil, fmt.Errorf("open list file failed, err:%w", err)
	}
	defer f.Close()
	lines, err := readLines(f)
	if err != nil {
		return nil, err
	}
	return ParseLines(lines, s.format), nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list failed, err:%w", err)
	}
	return lines, nil
}
