package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// defaultPollInterval is used when no interval is configured.
const defaultPollInterval = 2 * time.Second

// eventBuffer leaves room for the events emitted before Run starts reading.
const eventBuffer = 8

// ErrInterfaceNotFound is returned when the watched interface does not exist.
var ErrInterfaceNotFound = errors.New("connectivity: interface not found")

// addressLookup reports whether the interface exists and holds a usable address.
type addressLookup func(name string) (exists, hasAddress bool, err error)

// commandRunner runs the association command.
type commandRunner func(ctx context.Context, argv []string) error

// HostNetwork watches a host interface and turns address changes into
// events.
type HostNetwork struct {
	iface    string
	interval time.Duration
	command  []string
	events   chan Event
	lookup   addressLookup
	run      commandRunner
	logger   Logger

	mu      sync.Mutex
	started bool
	failed  bool
}

// NewHostNetwork creates a network layer for iface. command is run on every
// association attempt; an empty command leaves association to the OS.
func NewHostNetwork(iface string, interval time.Duration, command []string) *HostNetwork {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &HostNetwork{
		iface:    iface,
		interval: interval,
		command:  command,
		events:   make(chan Event, eventBuffer),
		lookup:   lookupInterface,
		run:      runCommand,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the network layer.
func (h *HostNetwork) SetLogger(logger Logger) {
	h.logger = logger
}

// Events returns the event stream consumed by Supervisor.Run.
func (h *HostNetwork) Events() <-chan Event {
	return h.events
}

// StartInterface checks the interface, emits InterfaceStarted and starts
// polling it until ctx ends.
func (h *HostNetwork) StartInterface(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	exists, _, err := h.lookup(h.iface)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", h.iface, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrInterfaceNotFound, h.iface)
	}

	h.emit(ctx, InterfaceStarted)
	go h.poll(ctx)

	return nil
}

// Connect runs the association command, if any. A failure is reported as
// LinkLost on the next poll so the supervisor reissues the attempt.
func (h *HostNetwork) Connect(ctx context.Context) error {
	if len(h.command) == 0 {
		return nil
	}

	if err := h.run(ctx, h.command); err != nil {
		h.mu.Lock()
		h.failed = true
		h.mu.Unlock()
		return fmt.Errorf("running %s: %w", h.command[0], err)
	}
	return nil
}

func (h *HostNetwork) poll(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	hadAddress := false
	for {
		hadAddress = h.check(ctx, hadAddress)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// check compares the interface with the last observation and emits the
// resulting event. It returns the new observation.
func (h *HostNetwork) check(ctx context.Context, hadAddress bool) bool {
	_, hasAddress, err := h.lookup(h.iface)
	if err != nil {
		h.logger.Debug("interface lookup failed", "interface", h.iface, "error", err)
		hasAddress = false
	}

	h.mu.Lock()
	failed := h.failed
	h.failed = false
	h.mu.Unlock()

	switch {
	case hasAddress && !hadAddress:
		h.emit(ctx, AddressAcquired)
	case !hasAddress && hadAddress:
		h.emit(ctx, LinkLost)
	case !hasAddress && failed:
		h.emit(ctx, LinkLost)
	}

	return hasAddress
}

func (h *HostNetwork) emit(ctx context.Context, ev Event) {
	select {
	case h.events <- ev:
	case <-ctx.Done():
	}
}

// lookupInterface reports whether name exists and has an IPv4 address
// that is not link-local.
func lookupInterface(name string) (exists, hasAddress bool, err error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		if strings.Contains(err.Error(), "no such network interface") {
			return false, false, nil
		}
		return false, false, err
	}

	if ifi.Flags&net.FlagUp == 0 {
		return true, false, nil
	}

	addrs, err := ifi.Addrs()
	if err != nil {
		return true, false, err
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLinkLocalUnicast() {
			continue
		}
		return true, true, nil
	}

	return true, false, nil
}

func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}
