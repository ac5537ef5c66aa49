package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/privacy"
)

func buildTestAPI(t *testing.T, rules []string) *httptest.Server {
	t.Helper()
	sink := activity.NewRingSink(16)
	layer, err := privacy.New(privacy.WithSink(sink))
	if err != nil {
		t.Fatalf("create layer failed, err:%v", err)
	}
	layer.Reload(context.Background(), rules, nil)
	s, err := New(WithLayer(layer), WithSink(sink))
	if err != nil {
		t.Fatalf("create api failed, err:%v", err)
	}
	svr := httptest.NewServer(s)
	t.Cleanup(svr.Close)
	return svr
}

func getJSON(t *testing.T, link string, out interface{}) int {
	t.Helper()
	rsp, err := http.Get(link)
	if err != nil {
		t.Fatalf("request failed, link:%s, err:%v", link, err)
	}
	defer rsp.Body.Close()
	if out != nil && rsp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(rsp.Body).Decode(out); err != nil {
			t.Fatalf("decode response failed, err:%v", err)
		}
	}
	return rsp.StatusCode
}

func TestAPICheck(t *testing.T) {
	svr := buildTestAPI(t, []string{"||tracker.com^"})
	var rsp checkResponse
	code := getJSON(t, svr.URL+"/api/check?url="+url.QueryEscape("https://tracker.com/a.js"), &rsp)
	if code != http.StatusOK {
		t.Fatalf("check status = %d, want 200", code)
	}
	if !rsp.Blocked || rsp.Via != privacy.ViaEngine {
		t.Errorf("check response = %+v, want engine block", rsp)
	}
	code = getJSON(t, svr.URL+"/api/check?url="+url.QueryEscape("https://example.com/"), &rsp)
	if code != http.StatusOK || rsp.Blocked {
		t.Errorf("check allowed = %d %+v, want 200 not blocked", code, rsp)
	}
	if code := getJSON(t, svr.URL+"/api/check", nil); code != http.StatusBadRequest {
		t.Errorf("check without url status = %d, want 400", code)
	}
}

func TestAPIStats(t *testing.T) {
	svr := buildTestAPI(t, []string{"||a.com^", "||b.com^"})
	var snap privacy.Snapshot
	code := getJSON(t, svr.URL+"/api/stats", &snap)
	if code != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", code)
	}
	if !snap.Initialized || snap.Engine.Patterns != 2 || snap.Engine.Domains != 2 {
		t.Errorf("stats = %+v, want 2 patterns 2 domains", snap)
	}
}

func TestAPIPatterns(t *testing.T) {
	svr := buildTestAPI(t, nil)
	checkLink := svr.URL + "/api/check?url=" + url.QueryEscape("https://pixel.test/i.gif")

	var rsp checkResponse
	getJSON(t, checkLink, &rsp)
	if rsp.Blocked {
		t.Fatalf("check before add = blocked")
	}

	body := strings.NewReader(`{"op":"add","pattern":"||pixel.test^"}`)
	post, err := http.Post(svr.URL+"/api/patterns", "application/json", body)
	if err != nil {
		t.Fatalf("post pattern failed, err:%v", err)
	}
	var snap privacy.Snapshot
	if err := json.NewDecoder(post.Body).Decode(&snap); err != nil {
		t.Fatalf("decode patterns response failed, err:%v", err)
	}
	post.Body.Close()
	if snap.Engine.Patterns != 1 {
		t.Errorf("patterns after add = %d, want 1", snap.Engine.Patterns)
	}

	getJSON(t, checkLink, &rsp)
	if !rsp.Blocked {
		t.Errorf("check after add = allowed, want blocked")
	}

	body = strings.NewReader(`{"op":"remove","pattern":"||pixel.test^"}`)
	post, err = http.Post(svr.URL+"/api/patterns", "application/json", body)
	if err != nil {
		t.Fatalf("post remove failed, err:%v", err)
	}
	post.Body.Close()
	getJSON(t, checkLink, &rsp)
	if rsp.Blocked {
		t.Errorf("check after remove = blocked, want allowed")
	}

	body = strings.NewReader(`{"op":"rename","pattern":"x"}`)
	post, err = http.Post(svr.URL+"/api/patterns", "application/json", body)
	if err != nil {
		t.Fatalf("post bad op failed, err:%v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusBadRequest {
		t.Errorf("bad op status = %d, want 400", post.StatusCode)
	}

	if code := getJSON(t, svr.URL+"/api/patterns", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("get patterns status = %d, want 405", code)
	}
}

func TestAPIActivity(t *testing.T) {
	svr := buildTestAPI(t, []string{"||tracker.com^"})
	getJSON(t, svr.URL+"/api/check?url="+url.QueryEscape("https://tracker.com/a"), nil)
	var recs []activity.Record
	code := getJSON(t, svr.URL+"/api/activity?limit=5", &recs)
	if code != http.StatusOK {
		t.Fatalf("activity status = %d, want 200", code)
	}
	if len(recs) != 1 || recs[0].Host != "tracker.com" {
		t.Errorf("activity = %+v, want one tracker.com record", recs)
	}
}

func TestAPIMetrics(t *testing.T) {
	svr := buildTestAPI(t, []string{"||tracker.com^"})
	getJSON(t, svr.URL+"/api/check?url="+url.QueryEscape("https://tracker.com/a"), nil)
	rsp, err := http.Get(svr.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed, err:%v", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rsp.StatusCode)
	}
	body, _ := io.ReadAll(rsp.Body)
	if !strings.Contains(string(body), "warden_checks_total") {
		t.Errorf("metrics output missing warden_checks_total")
	}
}
