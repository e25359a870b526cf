package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/session"
)

type sentCall struct {
	endpoint string
	payload  []byte
	typed    bool
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []sentCall
}

func (f *fakeTransport) Send(_ context.Context, endpoint string, payload []byte, typed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentCall{endpoint: endpoint, payload: payload, typed: typed})
}

func (f *fakeTransport) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

func newTestDispatcher(t *testing.T, sampled bool, sinks ...Sink) (*Dispatcher, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	d := New(Config{
		Session:   session.New(10, sampled, session.WithID("sess1234")),
		PageURL:   "https://example.com/article/42?utm=x",
		Transport: tr,
	}, sinks...)
	return d, tr
}

func TestSamplingGateSuppressesAllKinds(t *testing.T) {
	rec := &recordingSink{}
	d, tr := newTestDispatcher(t, false, rec)

	for _, k := range checkpoint.Kinds() {
		d.Dispatch(k, checkpoint.Data{"target": "/x"}, 1000)
	}

	if got := len(tr.sent()); got != 0 {
		t.Fatalf("transport calls with sampling off = %d, want 0", got)
	}
	if got := len(rec.records()); got != 0 {
		t.Fatalf("mirrored records with sampling off = %d, want 0", got)
	}
	if s := d.Stats(); s.Gated != int64(len(checkpoint.Kinds())) {
		t.Fatalf("gated = %d, want %d", s.Gated, len(checkpoint.Kinds()))
	}
}

func TestEndpointDerivedFromPageOrigin(t *testing.T) {
	d, tr := newTestDispatcher(t, true)

	if d.Endpoint() != "https://example.com/.rum/10" {
		t.Fatalf("endpoint = %q", d.Endpoint())
	}

	d.Dispatch(checkpoint.KindEnter, nil, 1000)
	calls := tr.sent()
	if len(calls) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(calls))
	}
	if calls[0].endpoint != "https://example.com/.rum/10" {
		t.Errorf("endpoint = %q", calls[0].endpoint)
	}
	if !calls[0].typed {
		t.Error("same-origin endpoint should send typed payload")
	}
}

func TestCrossOriginEndpointUntyped(t *testing.T) {
	tr := &fakeTransport{}
	d := New(Config{
		Session:   session.New(10, true),
		PageURL:   "https://example.com/article/42",
		BaseURL:   "https://collect.example.net",
		Transport: tr,
	})

	if d.Endpoint() != "https://collect.example.net/.rum/10" {
		t.Fatalf("endpoint = %q", d.Endpoint())
	}

	d.Dispatch(checkpoint.KindEnter, nil, 1000)
	calls := tr.sent()
	if len(calls) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(calls))
	}
	if calls[0].typed {
		t.Error("cross-origin endpoint should send untyped payload")
	}
}

func TestRecordCarriesOnlyAllowListedFields(t *testing.T) {
	d, tr := newTestDispatcher(t, true)

	d.Dispatch(checkpoint.KindCWV, checkpoint.Data{
		"target": ".hero img",
		"source": "#hero",
		"cwv":    map[string]float64{"LCP": 1843.2},
		"email":  "reader@example.com",
		"cookie": "sid=abc",
	}, 2000)

	calls := tr.sent()
	if len(calls) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(calls))
	}

	var wire map[string]any
	if err := json.Unmarshal(calls[0].payload, &wire); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, forbidden := range []string{"email", "cookie"} {
		if _, ok := wire[forbidden]; ok {
			t.Errorf("payload leaked %q key", forbidden)
		}
	}
	if wire["checkpoint"] != "cwv" {
		t.Errorf("checkpoint = %v", wire["checkpoint"])
	}
	if wire["referer"] != "https://example.com/article/42" {
		t.Errorf("referer = %v, query should be stripped", wire["referer"])
	}
	if wire["id"] != "sess1234" {
		t.Errorf("id = %v", wire["id"])
	}
	cwv, ok := wire["cwv"].(map[string]any)
	if !ok || cwv["LCP"] != 1843.2 {
		t.Errorf("cwv = %v", wire["cwv"])
	}
}

func TestInstallDrainsQueueInOrder(t *testing.T) {
	sess := session.New(10, true, session.WithID("sess1234"))
	sess.Record(checkpoint.At(checkpoint.KindEnter, nil, 1))
	sess.Record(checkpoint.At(checkpoint.KindViewBlock, checkpoint.Data{"source": ".a"}, 2))
	sess.Record(checkpoint.At(checkpoint.KindClick, checkpoint.Data{"target": "/next"}, 3))

	tr := &fakeTransport{}
	d := New(Config{Session: sess, PageURL: "https://example.com/", Transport: tr})
	if err := d.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}

	calls := tr.sent()
	if len(calls) != 3 {
		t.Fatalf("transport calls after drain = %d, want 3", len(calls))
	}
	want := []string{"enter", "viewblock", "click"}
	for i, w := range want {
		var wire map[string]any
		if err := json.Unmarshal(calls[i].payload, &wire); err != nil {
			t.Fatalf("unmarshal call %d: %v", i, err)
		}
		if wire["checkpoint"] != w {
			t.Errorf("call %d checkpoint = %v, want %s", i, wire["checkpoint"], w)
		}
	}
	if sess.PendingLen() != 0 {
		t.Errorf("pending after drain = %d", sess.PendingLen())
	}
}

func TestRateLimitDropsExcessButStillMirrors(t *testing.T) {
	rec := &recordingSink{}
	tr := &fakeTransport{}
	d := New(Config{
		Session:    session.New(10, true),
		PageURL:    "https://example.com/",
		RateMax:    2,
		RateWindow: time.Hour,
		Transport:  tr,
	}, rec)

	for i := 0; i < 5; i++ {
		d.Dispatch(checkpoint.KindViewBlock, checkpoint.Data{"source": ".b"}, int64(i))
	}

	if got := len(tr.sent()); got != 2 {
		t.Errorf("transport calls = %d, want 2", got)
	}
	if got := len(rec.records()); got != 5 {
		t.Errorf("mirrored records = %d, want 5", got)
	}
	if s := d.Stats(); s.Limited != 3 || s.Dispatched != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLimiterWindowResets(t *testing.T) {
	l := newLimiter(1, 10*time.Millisecond)
	if !l.allow() {
		t.Fatal("first allow should pass")
	}
	if l.allow() {
		t.Fatal("second allow in window should fail")
	}
	time.Sleep(15 * time.Millisecond)
	if !l.allow() {
		t.Fatal("allow after window reset should pass")
	}
}

type recordingSink struct {
	mu   sync.Mutex
	recs []Record
	fail bool
}

func (r *recordingSink) Send(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("sink down")
	}
	r.recs = append(r.recs, rec)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.recs...)
}
