package dispatch

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

// fakeLight records what the dispatcher forwards.
type fakeLight struct {
	state    fade.LightState
	target   int
	commands []fade.Command
	targets  []int
	min, max int
}

func newFakeLight() *fakeLight {
	return &fakeLight{target: -1, min: 0, max: 1023}
}

func (l *fakeLight) ApplyCommand(cmd fade.Command) error {
	l.commands = append(l.commands, cmd)
	switch cmd {
	case fade.CommandOn:
		l.state = fade.On
	case fade.CommandOff:
		l.state = fade.Off
	case fade.CommandToggle:
		if l.state == fade.On {
			l.state = fade.Off
		} else {
			l.state = fade.On
		}
	}
	return nil
}

func (l *fakeLight) SetTarget(level int) error {
	l.targets = append(l.targets, level)
	l.target = level
	return nil
}

func (l *fakeLight) Clamp(level int) int {
	if level < l.min {
		return l.min
	}
	if level > l.max {
		return l.max
	}
	return level
}

func defaultConfig() Config {
	return Config{
		ClientID:        "ESP32ABCDEF",
		Switch:          "light/switch",
		Brightness:      "light/brightness/set",
		PayloadCapacity: 32,
	}
}

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, *fakeLight) {
	t.Helper()
	light := newFakeLight()
	d, err := New(light, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d, light
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, defaultConfig()); !errors.Is(err, ErrNilLight) {
		t.Errorf("New(nil) error = %v, want ErrNilLight", err)
	}
	if _, err := New(newFakeLight(), Config{ClientID: "ESP32ABCDEF"}); !errors.Is(err, ErrNoRoutes) {
		t.Errorf("New(no topics) error = %v, want ErrNoRoutes", err)
	}
}

func TestSubscriptions_TopicConstruction(t *testing.T) {
	d, _ := newTestDispatcher(t, defaultConfig())

	subs := d.Subscriptions()
	want := []string{"ESP32ABCDEF/light/switch", "ESP32ABCDEF/light/brightness/set"}
	if len(subs) != len(want) {
		t.Fatalf("len(Subscriptions()) = %d, want %d", len(subs), len(want))
	}
	for i := range want {
		if subs[i].Topic != want[i] {
			t.Errorf("Subscriptions()[%d].Topic = %q, want %q", i, subs[i].Topic, want[i])
		}
		if subs[i].Handler == nil {
			t.Errorf("Subscriptions()[%d].Handler is nil", i)
		}
	}

	topics := d.Topics()
	topics[0] = "mutated"
	if d.Topics()[0] != want[0] {
		t.Error("Topics() exposes internal slice")
	}
}

func TestSubscriptions_CombinedTopic(t *testing.T) {
	cfg := defaultConfig()
	cfg.Combined = "light"
	d, _ := newTestDispatcher(t, cfg)

	topics := d.Topics()
	if len(topics) != 3 || topics[2] != "ESP32ABCDEF/light" {
		t.Errorf("Topics() = %v, want combined topic last", topics)
	}
}

func TestRoute_Switch(t *testing.T) {
	tests := []struct {
		payload   string
		wantState fade.LightState
		wantCmds  int
	}{
		{payload: "ON", wantState: fade.On, wantCmds: 1},
		{payload: "OFF", wantState: fade.Off, wantCmds: 1},
		{payload: "TOGGLE", wantState: fade.On, wantCmds: 1},
		{payload: "garbage", wantState: fade.Off, wantCmds: 0},
		{payload: "on", wantState: fade.Off, wantCmds: 0},
		{payload: "", wantState: fade.Off, wantCmds: 0},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			d, light := newTestDispatcher(t, defaultConfig())

			if err := d.Route("ESP32ABCDEF/light/switch", []byte(tt.payload)); err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if light.state != tt.wantState {
				t.Errorf("state = %v, want %v", light.state, tt.wantState)
			}
			if len(light.commands) != tt.wantCmds {
				t.Errorf("commands = %v, want %d", light.commands, tt.wantCmds)
			}
			if len(light.targets) != 0 {
				t.Errorf("switch payload reached SetTarget: %v", light.targets)
			}
		})
	}
}

func TestRoute_Brightness(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{name: "in range", payload: "150", want: 150},
		{name: "non-numeric reads as zero", payload: "abc", want: 0},
		{name: "empty reads as zero", payload: "", want: 0},
		{name: "above max clamps", payload: "5000", want: 1023},
		{name: "negative clamps", payload: "-5", want: 0},
		{name: "trailing junk", payload: "42%", want: 42},
		{name: "leading space", payload: "  7", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, light := newTestDispatcher(t, defaultConfig())

			if err := d.Route("ESP32ABCDEF/light/brightness/set", []byte(tt.payload)); err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if light.target != tt.want {
				t.Errorf("target = %d, want %d", light.target, tt.want)
			}
			if light.state != fade.Off || len(light.commands) != 0 {
				t.Error("brightness payload changed the logical state")
			}
		})
	}
}

func TestRoute_Combined(t *testing.T) {
	cfg := defaultConfig()
	cfg.Combined = "light"
	d, light := newTestDispatcher(t, cfg)

	if err := d.Route("ESP32ABCDEF/light", []byte("ON")); err != nil {
		t.Fatal(err)
	}
	if light.state != fade.On {
		t.Errorf("state = %v, want On", light.state)
	}

	if err := d.Route("ESP32ABCDEF/light", []byte("300")); err != nil {
		t.Fatal(err)
	}
	if light.target != 300 {
		t.Errorf("target = %d, want 300", light.target)
	}
}

func TestRoute_PayloadOverflow(t *testing.T) {
	cfg := defaultConfig()
	cfg.PayloadCapacity = 4
	d, light := newTestDispatcher(t, cfg)

	// Three bytes plus the terminator slot fit exactly.
	if err := d.Route("ESP32ABCDEF/light/brightness/set", []byte("100")); err != nil {
		t.Fatalf("Route(3 bytes) error = %v", err)
	}
	if light.target != 100 {
		t.Errorf("target = %d, want 100", light.target)
	}

	err := d.Route("ESP32ABCDEF/light/brightness/set", []byte("1000"))
	if !errors.Is(err, ErrPayloadOverflow) {
		t.Errorf("Route(4 bytes) error = %v, want ErrPayloadOverflow", err)
	}
	if light.target != 100 {
		t.Errorf("target = %d after overflow, want unchanged 100", light.target)
	}

	err = d.Route("ESP32ABCDEF/light/switch", []byte(strings.Repeat("O", 64)))
	if !errors.Is(err, ErrPayloadOverflow) {
		t.Errorf("Route(64 bytes) error = %v, want ErrPayloadOverflow", err)
	}
}

func TestRoute_UnknownTopic(t *testing.T) {
	d, light := newTestDispatcher(t, defaultConfig())

	err := d.Route("ESP32OTHER/light/switch", []byte("ON"))
	if !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Route() error = %v, want ErrUnknownTopic", err)
	}
	if len(light.commands) != 0 {
		t.Error("foreign topic reached the light")
	}
}

func TestRoute_SubscriptionHandler(t *testing.T) {
	d, light := newTestDispatcher(t, defaultConfig())

	sub := d.Subscriptions()[0]
	if err := sub.Handler(sub.Topic, []byte("ON")); err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if light.state != fade.On {
		t.Errorf("state = %v, want On", light.state)
	}
}

func TestRoute_DrivesEngine(t *testing.T) {
	out := &stubFader{}
	engine, err := fade.NewEngine(out, fade.Config{Min: 0, Max: 1023})
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(engine, defaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Route("ESP32ABCDEF/light/switch", []byte("TOGGLE")); err != nil {
		t.Fatal(err)
	}
	if engine.State() != fade.On || out.target != 1023 {
		t.Errorf("after TOGGLE: state=%v target=%d", engine.State(), out.target)
	}

	if err := d.Route("ESP32ABCDEF/light/brightness/set", []byte("150")); err != nil {
		t.Fatal(err)
	}
	if engine.Target() != 150 {
		t.Errorf("Target() = %d, want 150", engine.Target())
	}
}

// stubFader jumps straight to the target.
type stubFader struct {
	current, target int
}

func (f *stubFader) StartRamp(target int, _ time.Duration) error {
	f.target = target
	f.current = target
	return nil
}
func (f *stubFader) Stop() (int, error) { return f.current, nil }
func (f *stubFader) Current() int       { return f.current }
func (f *stubFader) Target() int        { return f.target }
