package track

import (
	"testing"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

func TestClassifyEntry(t *testing.T) {
	const page = "https://site.example/docs/intro"

	tests := []struct {
		name     string
		referrer string
		navType  string
		want     checkpoint.Kind
	}{
		{"reload type wins", "https://other.example/", "reload", checkpoint.KindReload},
		{"self referral is reload regardless of type", page, "navigate", checkpoint.KindReload},
		{"self referral with back_forward is still reload", page, "back_forward", checkpoint.KindReload},
		{"back_forward verbatim", "https://other.example/", "back_forward", checkpoint.Kind("back_forward")},
		{"prerender verbatim", "", "prerender", checkpoint.Kind("prerender")},
		{"same origin referrer is navigate", "https://site.example/home", "navigate", checkpoint.KindNavigate},
		{"cross origin referrer is enter", "https://search.example/q", "navigate", checkpoint.KindEnter},
		{"empty referrer with navigate is enter", "", "navigate", checkpoint.KindEnter},
		{"empty referrer no type is enter", "", "", checkpoint.KindEnter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyEntry(tt.referrer, page, tt.navType)
			if got != tt.want {
				t.Errorf("ClassifyEntry(%q, %q): got %q, want %q", tt.referrer, tt.navType, got, tt.want)
			}
		})
	}
}

func TestLifecycle_EntryCarriesReferrerAndVisibility(t *testing.T) {
	c := &capture{}
	l := NewLifecycle(allKinds(), c.emit, nil)

	l.ProcessEntry(instrument.PageInfo{
		URL:             "https://site.example/docs",
		Referrer:        "https://site.example/",
		NavigationType:  "navigate",
		VisibilityState: "visible",
	})

	got := c.all()
	if len(got) != 1 {
		t.Fatalf("checkpoints: got %d, want 1", len(got))
	}
	if got[0].Kind != checkpoint.KindNavigate {
		t.Errorf("Kind: got %q", got[0].Kind)
	}
	if got[0].Data["source"] != "https://site.example/" {
		t.Errorf("source: got %v", got[0].Data["source"])
	}
	if got[0].Data["target"] != "visible" {
		t.Errorf("target: got %v", got[0].Data["target"])
	}
}

func TestLifecycle_LeaveFiresExactlyOnce(t *testing.T) {
	// Both exit signals, in both orders, across repeated delivery.
	orders := [][]string{
		{"hidden", "pagehide"},
		{"pagehide", "hidden"},
		{"hidden", "hidden", "pagehide", "pagehide"},
	}
	for _, order := range orders {
		c := &capture{}
		l := NewLifecycle(allKinds(), c.emit, nil)
		for _, typ := range order {
			l.ProcessExit(instrument.LifecycleSignal{Type: typ, At: 42})
		}
		if n := len(c.all()); n != 1 {
			t.Errorf("order %v: got %d leave checkpoints, want 1", order, n)
		}
		if !l.Left() {
			t.Errorf("order %v: Left should be true", order)
		}
	}
}

func TestLifecycle_DisabledKindsNeverEmit(t *testing.T) {
	c := &capture{}
	l := NewLifecycle(checkpoint.ParseSet([]string{"viewblock"}), c.emit, nil)

	l.ProcessEntry(instrument.PageInfo{
		URL:            "https://site.example/docs",
		NavigationType: "navigate",
	})
	l.ProcessExit(instrument.LifecycleSignal{Type: "hidden", At: 42})

	if n := len(c.all()); n != 0 {
		t.Fatalf("lifecycle checkpoints with kinds disabled: got %d, want 0", n)
	}
	if l.Left() {
		t.Error("Left should stay false while leave is disabled")
	}
}

func TestLifecycle_VerbatimTypesFollowNavigateSwitch(t *testing.T) {
	// back_forward restores cannot be configured individually; with navigate
	// disabled they are suppressed, with navigate enabled they pass verbatim.
	c := &capture{}
	l := NewLifecycle(checkpoint.ParseSet([]string{"enter"}), c.emit, nil)
	l.ProcessEntry(instrument.PageInfo{
		URL:            "https://site.example/docs",
		Referrer:       "https://other.example/",
		NavigationType: "back_forward",
	})
	if n := len(c.all()); n != 0 {
		t.Fatalf("back_forward with navigate disabled: got %d checkpoints, want 0", n)
	}

	c = &capture{}
	l = NewLifecycle(checkpoint.ParseSet([]string{"navigate"}), c.emit, nil)
	l.ProcessEntry(instrument.PageInfo{
		URL:            "https://site.example/docs",
		Referrer:       "https://other.example/",
		NavigationType: "back_forward",
	})
	got := c.all()
	if len(got) != 1 {
		t.Fatalf("back_forward with navigate enabled: got %d checkpoints, want 1", len(got))
	}
	if got[0].Kind != checkpoint.Kind("back_forward") {
		t.Errorf("Kind: got %q, want back_forward", got[0].Kind)
	}
}

func TestLifecycle_LeaveHasNoData(t *testing.T) {
	c := &capture{}
	l := NewLifecycle(allKinds(), c.emit, nil)
	l.ProcessExit(instrument.LifecycleSignal{Type: "pagehide", At: 7})

	got := c.all()
	if len(got) != 1 {
		t.Fatalf("checkpoints: got %d, want 1", len(got))
	}
	if got[0].Kind != checkpoint.KindLeave {
		t.Errorf("Kind: got %q", got[0].Kind)
	}
	if got[0].Data != nil {
		t.Errorf("Data: got %v, want nil", got[0].Data)
	}
	if got[0].Timestamp != 7 {
		t.Errorf("Timestamp: got %d", got[0].Timestamp)
	}
}
