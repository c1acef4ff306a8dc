package identity

import (
	"errors"
	"net"
	"testing"
)

type failingSource struct{}

func (failingSource) HardwareAddr() (net.HardwareAddr, error) {
	return nil, errors.New("no such device")
}

func TestDerive(t *testing.T) {
	mac := net.HardwareAddr{0xd8, 0xa0, 0x1d, 0x40, 0x18, 0xb4}

	got, err := Derive("ESP32", mac)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if got != "ESP32d8a01d4018b4" {
		t.Errorf("Derive() = %q, want %q", got, "ESP32d8a01d4018b4")
	}
}

func TestDerive_SuffixLength(t *testing.T) {
	got, err := Derive("", net.HardwareAddr{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if len(got) != 12 {
		t.Errorf("len(Derive()) = %d, want 12", len(got))
	}
	if got != "000102030405" {
		t.Errorf("Derive() = %q, want %q", got, "000102030405")
	}
}

func TestDerive_InvalidLength(t *testing.T) {
	tests := []struct {
		name string
		mac  net.HardwareAddr
	}{
		{name: "empty", mac: nil},
		{name: "short", mac: net.HardwareAddr{0xd8, 0xa0}},
		{name: "eui64", mac: net.HardwareAddr{1, 2, 3, 4, 5, 6, 7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive("ESP32", tt.mac)
			if !errors.Is(err, ErrInvalidHardwareAddress) {
				t.Errorf("Derive() error = %v, want ErrInvalidHardwareAddress", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	mac := Static{0xd8, 0xa0, 0x1d, 0x40, 0x18, 0xb4}

	t.Run("explicit id used verbatim", func(t *testing.T) {
		got, err := Resolve("kitchen-dimmer", "ESP32", mac)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "kitchen-dimmer" {
			t.Errorf("Resolve() = %q, want %q", got, "kitchen-dimmer")
		}
	})

	t.Run("explicit id ignores failing source", func(t *testing.T) {
		got, err := Resolve("kitchen-dimmer", "ESP32", failingSource{})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "kitchen-dimmer" {
			t.Errorf("Resolve() = %q, want %q", got, "kitchen-dimmer")
		}
	})

	t.Run("derived from hardware address", func(t *testing.T) {
		got, err := Resolve("", "ESP32", mac)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "ESP32d8a01d4018b4" {
			t.Errorf("Resolve() = %q, want %q", got, "ESP32d8a01d4018b4")
		}
	})

	t.Run("derivation is deterministic", func(t *testing.T) {
		a, _ := Resolve("", "ESP32", mac)
		b, _ := Resolve("", "ESP32", mac)
		if a != b {
			t.Errorf("Resolve() not deterministic: %q != %q", a, b)
		}
	})

	t.Run("source error", func(t *testing.T) {
		_, err := Resolve("", "ESP32", failingSource{})
		if err == nil {
			t.Error("Resolve() expected error from failing source")
		}
	})

	t.Run("no source", func(t *testing.T) {
		_, err := Resolve("", "ESP32", nil)
		if !errors.Is(err, ErrNoSource) {
			t.Errorf("Resolve() error = %v, want ErrNoSource", err)
		}
	})
}
