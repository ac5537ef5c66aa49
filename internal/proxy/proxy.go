package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/warden/internal/privacy"
	"go.uber.org/zap"
)

// Server is a forward HTTP proxy that consults the privacy layer before
// letting any request out.
type Server struct {
	layer       *privacy.Layer
	hs          *http.Server
	tr          *http.Transport
	dialTimeout time.Duration
}

// New creates a filtering proxy using the supplied options.
func New(opts ...Option) (*Server, error) {
	o := &options{
		bind:        ":8118",
		dialTimeout: 10 * time.Second,
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.layer == nil {
		return nil, fmt.Errorf("proxy needs a privacy layer")
	}
	s := &Server{
		layer:       o.layer,
		dialTimeout: o.dialTimeout,
		tr: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   o.dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        128,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	s.hs = &http.Server{
		Addr:    o.bind,
		Handler: s,
	}
	return s, nil
}

// Start begins serving and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.hs.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		s.shutdown()
		return ctx.Err()
	case err := <-errCh:
		s.shutdown()
		return err
	}
}

func (s *Server) shutdown() {
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.hs.Shutdown(sctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logutil.GetLogger(r.Context()).Error("panic recovered while handling proxy request",
				zap.Any("panic", rec))
		}
	}()
	if r.Method == http.MethodConnect {
		s.handleConnect(w, r)
		return
	}
	s.handleHTTP(w, r)
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !r.URL.IsAbs() {
		http.Error(w, "this is a forward proxy", http.StatusBadRequest)
		return
	}
	if d := s.layer.Check(ctx, r.URL.String()); d.Blocked {
		http.Error(w, "blocked by privacy policy", http.StatusForbidden)
		return
	}
	outReq := r.Clone(ctx)
	outReq.RequestURI = ""
	stripHopHeaders(outReq.Header)
	rsp, err := s.tr.RoundTrip(outReq)
	if err != nil {
		logutil.GetLogger(ctx).Error("upstream request failed",
			zap.String("url", r.URL.String()), zap.Error(err))
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer rsp.Body.Close()
	stripHopHeaders(rsp.Header)
	copyHeader(w.Header(), rsp.Header)
	w.WriteHeader(rsp.StatusCode)
	_, _ = io.Copy(w, rsp.Body)
}

// handleConnect tunnels TLS traffic. Only the hostname is visible before the
// handshake, so the check runs against a synthetic root URL.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if d := s.layer.Check(ctx, "https://"+r.Host+"/"); d.Blocked {
		http.Error(w, "blocked by privacy policy", http.StatusForbidden)
		return
	}
	upstream, err := net.DialTimeout("tcp", r.Host, s.dialTimeout)
	if err != nil {
		logutil.GetLogger(ctx).Error("upstream dial failed",
			zap.String("host", r.Host), zap.Error(err))
		http.Error(w, "upstream dial failed", http.StatusBadGateway)
		return
	}
	hj, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		upstream.Close()
		logutil.GetLogger(ctx).Error("hijack failed", zap.Error(err))
		return
	}
	_, _ = conn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	go tunnel(upstream, conn)
	go tunnel(conn, upstream)
}

func tunnel(dst io.WriteCloser, src io.ReadCloser) {
	defer dst.Close()
	defer src.Close()
	_, _ = io.Copy(dst, src)
}

var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func stripHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
