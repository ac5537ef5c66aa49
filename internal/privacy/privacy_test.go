package privacy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/xxxsen/warden/internal/activity"
)

func mustLayer(t *testing.T, opts ...Option) *Layer {
	t.Helper()
	l, err := New(opts...)
	if err != nil {
		t.Fatalf("create layer failed, err:%v", err)
	}
	return l
}

func TestLayerCheck(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx,
		[]string{"||tracker.com^", "*://*.hotjar.com/*"},
		[]string{"||cdn.tracker.com^"},
	)
	tests := []struct {
		url     string
		blocked bool
		via     string
	}{
		{"https://tracker.com/collect", true, ViaEngine},
		{"https://sub.tracker.com/a.js", true, ViaEngine},
		{"https://cdn.tracker.com/lib.js", false, ViaAllowlist},
		{"https://asset.cdn.tracker.com/lib.js", false, ViaAllowlist},
		{"https://www.hotjar.com/identify", true, ViaEngine},
		{"https://example.com/page", false, ViaEngine},
		{"not a url", false, ViaInvalid},
		{"", false, ViaInvalid},
	}
	for _, tt := range tests {
		d := l.Check(ctx, tt.url)
		if d.Blocked != tt.blocked || d.Via != tt.via {
			t.Errorf("Check(%q) = {%t %s}, want {%t %s}", tt.url, d.Blocked, d.Via, tt.blocked, tt.via)
		}
	}
}

func TestLayerDecisionCache(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx, []string{"||tracker.com^"}, nil)
	first := l.Check(ctx, "https://tracker.com/a")
	if first.Via != ViaEngine || !first.Blocked {
		t.Fatalf("first Check = {%t %s}, want engine block", first.Blocked, first.Via)
	}
	second := l.Check(ctx, "https://tracker.com/a")
	if second.Via != ViaCache || !second.Blocked {
		t.Errorf("second Check = {%t %s}, want cached block", second.Blocked, second.Via)
	}
}

func TestLayerReloadPurgesCache(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx, []string{"||tracker.com^"}, nil)
	if d := l.Check(ctx, "https://tracker.com/a"); !d.Blocked {
		t.Fatalf("Check before reload = allowed, want blocked")
	}
	l.Reload(ctx, []string{"||other.com^"}, nil)
	d := l.Check(ctx, "https://tracker.com/a")
	if d.Blocked || d.Via != ViaEngine {
		t.Errorf("Check after reload = {%t %s}, want fresh allow", d.Blocked, d.Via)
	}
}

func TestLayerAddRemoveRule(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx, nil, nil)
	if d := l.Check(ctx, "https://pixel.example.com/i.gif"); d.Blocked {
		t.Fatalf("Check on empty rule set = blocked")
	}
	l.AddRule(ctx, "||pixel.example.com^")
	if d := l.Check(ctx, "https://pixel.example.com/i.gif"); !d.Blocked {
		t.Errorf("Check after AddRule = allowed, want blocked")
	}
	l.RemoveRule(ctx, "||pixel.example.com^")
	if d := l.Check(ctx, "https://pixel.example.com/i.gif"); d.Blocked {
		t.Errorf("Check after RemoveRule = blocked, want allowed")
	}
}

func TestLayerExceptionRules(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx, []string{"||ads.example.com^"}, nil)
	if d := l.Check(ctx, "https://ads.example.com/banner"); !d.Blocked {
		t.Fatalf("Check without exception = allowed, want blocked")
	}
	l.AddRule(ctx, "@@||ads.example.com^")
	d := l.Check(ctx, "https://ads.example.com/banner")
	if d.Blocked || d.Via != ViaAllowlist {
		t.Errorf("Check with exception = {%t %s}, want allowlisted", d.Blocked, d.Via)
	}
	l.RemoveRule(ctx, "@@||ads.example.com^")
	if d := l.Check(ctx, "https://ads.example.com/banner"); !d.Blocked {
		t.Errorf("Check after exception removed = allowed, want blocked")
	}
}

func TestLayerSinkReceivesBlocks(t *testing.T) {
	ctx := context.Background()
	sink := activity.NewRingSink(16)
	l := mustLayer(t, WithSink(sink))
	l.Reload(ctx, []string{"||tracker.com^"}, nil)
	l.Check(ctx, "https://tracker.com/a")
	l.Check(ctx, "https://example.com/b")
	recs := sink.Recent(0)
	if len(recs) != 1 {
		t.Fatalf("sink records = %d, want 1", len(recs))
	}
	if recs[0].Host != "tracker.com" {
		t.Errorf("sink record host = %s, want tracker.com", recs[0].Host)
	}
}

func TestLayerSnapshot(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	snap := l.Snapshot()
	if snap.Initialized {
		t.Errorf("Snapshot before reload reports initialized")
	}
	l.Reload(ctx, []string{"||a.com^", "||b.com^", "*://c.com/*"}, []string{"||ok.a.com^"})
	l.Check(ctx, "https://a.com/x")
	snap = l.Snapshot()
	if !snap.Initialized {
		t.Errorf("Snapshot.Initialized = false, want true")
	}
	if snap.Engine.Patterns != 3 || snap.Engine.Domains != 2 {
		t.Errorf("Snapshot.Engine = %+v, want 3 patterns 2 domains", snap.Engine)
	}
	if snap.Exceptions != 1 {
		t.Errorf("Snapshot.Exceptions = %d, want 1", snap.Exceptions)
	}
	if snap.CachedDecisions != 1 {
		t.Errorf("Snapshot.CachedDecisions = %d, want 1", snap.CachedDecisions)
	}
}

func TestLayerConcurrentCheckAndReload(t *testing.T) {
	ctx := context.Background()
	l := mustLayer(t)
	l.Reload(ctx, []string{"||tracker.com^"}, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Check(ctx, fmt.Sprintf("https://host%d-%d.tracker.com/x", g, i))
			}
		}(g)
	}
	for i := 0; i < 10; i++ {
		l.Reload(ctx, []string{"||tracker.com^", fmt.Sprintf("||batch%d.example.com^", i)}, nil)
	}
	wg.Wait()
	if d := l.Check(ctx, "https://a.tracker.com/x"); !d.Blocked {
		t.Errorf("Check after concurrent reloads = allowed, want blocked")
	}
}
