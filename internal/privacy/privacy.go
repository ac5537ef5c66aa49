package privacy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	radix "github.com/armon/go-radix"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/matcher"
	"github.com/xxxsen/warden/internal/matcher/pattern"
	"github.com/xxxsen/warden/internal/metrics"
	"github.com/xxxsen/warden/internal/urlx"
	"go.uber.org/zap"
)

const (
	ViaCache     = "cache"
	ViaAllowlist = "allowlist"
	ViaEngine    = "engine"
	ViaInvalid   = "invalid"
)

// Decision is the outcome of one URL check.
type Decision struct {
	Blocked bool   `json:"blocked"`
	Via     string `json:"via"`
}

// Snapshot is a point-in-time view of the layer state.
type Snapshot struct {
	Initialized     bool          `json:"initialized"`
	Engine          matcher.Stats `json:"engine"`
	Exceptions      int           `json:"exceptions"`
	CachedDecisions int           `json:"cached_decisions"`
}

// Layer owns the matcher and arbitrates all access to it. The matcher itself
// is single writer, so mutations take the write lock and checks share the
// read lock.
type Layer struct {
	sink activity.ISink

	lock  sync.RWMutex
	eng   matcher.IURLMatcher
	allow *radix.Tree
	cache *lru.Cache[string, bool]
}

func New(opts ...Option) (*Layer, error) {
	o := &options{
		cacheSize: 4096,
	}
	for _, fn := range opts {
		fn(o)
	}
	cache, err := lru.New[string, bool](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create decision cache failed, err:%w", err)
	}
	return &Layer{
		sink:  o.sink,
		eng:   matcher.New(o.matcherOpts...),
		allow: radix.New(),
		cache: cache,
	}, nil
}

// Check classifies one outgoing URL. It never fails: anything that cannot be
// interpreted is allowed through.
func (l *Layer) Check(ctx context.Context, rawurl string) Decision {
	start := time.Now()
	d, host := l.decide(rawurl)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())
	if !d.Blocked {
		metrics.ChecksTotal.WithLabelValues(metrics.DecisionAllowed).Inc()
		return d
	}
	metrics.ChecksTotal.WithLabelValues(metrics.DecisionBlocked).Inc()
	if l.sink != nil {
		l.sink.Publish(ctx, activity.Record{Time: time.Now(), URL: rawurl, Host: host})
	}
	return d
}

func (l *Layer) decide(rawurl string) (Decision, string) {
	host, ok := urlx.ExtractHost(rawurl)
	if !ok {
		return Decision{Blocked: false, Via: ViaInvalid}, ""
	}
	l.lock.RLock()
	defer l.lock.RUnlock()
	if blocked, ok := l.cache.Get(rawurl); ok {
		metrics.CacheHitsTotal.Inc()
		return Decision{Blocked: blocked, Via: ViaCache}, host
	}
	if l.allowlisted(host) {
		l.cache.Add(rawurl, false)
		return Decision{Blocked: false, Via: ViaAllowlist}, host
	}
	blocked := l.eng.Matches(rawurl)
	l.cache.Add(rawurl, blocked)
	return Decision{Blocked: blocked, Via: ViaEngine}, host
}

// Reload rebuilds the engine and the allowlist from a full rule set and drops
// every cached decision.
func (l *Layer) Reload(ctx context.Context, rules []string, exceptions []string) {
	l.lock.Lock()
	l.eng.Initialize(rules)
	l.allow = radix.New()
	skipped := 0
	for _, item := range exceptions {
		if !l.insertExceptionLocked(item) {
			skipped++
		}
	}
	l.cache.Purge()
	st := l.eng.Stats()
	allowed := l.allow.Len()
	l.lock.Unlock()
	syncGauges(st)
	logutil.GetLogger(ctx).Info("privacy layer reloaded",
		zap.Int("rules", len(rules)),
		zap.Int("patterns", st.Patterns),
		zap.Int("domains", st.Domains),
		zap.Int("exceptions", allowed),
		zap.Int("skipped_exceptions", skipped))
}

// AddRule registers one extra rule at runtime. "@@" rules extend the
// allowlist, anything else goes to the engine.
func (l *Layer) AddRule(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	l.lock.Lock()
	if strings.HasPrefix(raw, "@@") {
		l.insertExceptionLocked(strings.TrimPrefix(raw, "@@"))
	} else {
		l.eng.AddPattern(raw)
	}
	l.cache.Purge()
	st := l.eng.Stats()
	l.lock.Unlock()
	syncGauges(st)
	logutil.GetLogger(ctx).Info("rule added", zap.String("rule", raw))
}

// RemoveRule drops a previously registered rule.
func (l *Layer) RemoveRule(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	l.lock.Lock()
	if strings.HasPrefix(raw, "@@") {
		if p, ok := pattern.Compile(strings.TrimPrefix(raw, "@@")); ok && p.Domain != "" {
			l.allow.Delete(reverseLabels(p.Domain))
		}
	} else {
		l.eng.RemovePattern(raw)
	}
	l.cache.Purge()
	st := l.eng.Stats()
	l.lock.Unlock()
	syncGauges(st)
	logutil.GetLogger(ctx).Info("rule removed", zap.String("rule", raw))
}

func (l *Layer) Snapshot() Snapshot {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return Snapshot{
		Initialized:     l.eng.IsInitialized(),
		Engine:          l.eng.Stats(),
		Exceptions:      l.allow.Len(),
		CachedDecisions: l.cache.Len(),
	}
}

// insertExceptionLocked keeps domain shaped exceptions only, wildcard
// exceptions have no domain to index.
func (l *Layer) insertExceptionLocked(raw string) bool {
	p, ok := pattern.Compile(raw)
	if !ok || p.Domain == "" {
		return false
	}
	l.allow.Insert(reverseLabels(p.Domain), struct{}{})
	return true
}

func (l *Layer) allowlisted(host string) bool {
	if l.allow.Len() == 0 {
		return false
	}
	rev := reverseLabels(host)
	if _, ok := l.allow.Get(rev); ok {
		return true
	}
	parts := strings.Split(rev, ".")
	for i := 1; i < len(parts); i++ {
		if _, ok := l.allow.Get(strings.Join(parts[:i], ".")); ok {
			return true
		}
	}
	return false
}

func reverseLabels(domain string) string {
	parts := strings.Split(domain, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func syncGauges(st matcher.Stats) {
	metrics.PatternCount.Set(float64(st.Patterns))
	metrics.DomainCount.Set(float64(st.Domains))
	metrics.BloomUsage.Set(st.BloomUsage)
}
