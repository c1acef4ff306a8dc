package pwm

import (
	"fmt"
	"sync"
)

// Output is a duty-cycle peripheral.
type Output interface {
	// Configure sets the duty resolution and carrier frequency.
	Configure(resolutionBits int, frequencyHz int) error

	// Write sets the absolute duty level (0..2^resolutionBits-1).
	Write(level int) error
}

// maxLevel returns the largest level for a resolution.
func maxLevel(resolutionBits int) int {
	return 1<<resolutionBits - 1
}

// validateConfig checks the common Configure arguments.
func validateConfig(resolutionBits, frequencyHz int) error {
	if resolutionBits < 1 || resolutionBits > 31 {
		return fmt.Errorf("%w: resolution %d bits", ErrInvalidConfig, resolutionBits)
	}
	if frequencyHz <= 0 {
		return fmt.Errorf("%w: frequency %d Hz", ErrInvalidConfig, frequencyHz)
	}
	return nil
}

// MemoryOutput keeps the written levels in memory. It stands in for the
// peripheral on hosts without PWM hardware.
type MemoryOutput struct {
	mu          sync.Mutex
	configured  bool
	bits        int
	frequencyHz int
	level       int
	writes      int
}

// NewMemoryOutput creates an unconfigured in-memory output.
func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{}
}

// Configure implements Output.
func (m *MemoryOutput) Configure(resolutionBits int, frequencyHz int) error {
	if err := validateConfig(resolutionBits, frequencyHz); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = true
	m.bits = resolutionBits
	m.frequencyHz = frequencyHz
	return nil
}

// Write implements Output.
func (m *MemoryOutput) Write(level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return ErrNotConfigured
	}
	if level < 0 || level > maxLevel(m.bits) {
		return fmt.Errorf("%w: %d", ErrLevelOutOfRange, level)
	}
	m.level = level
	m.writes++
	return nil
}

// Level returns the last written level.
func (m *MemoryOutput) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Writes returns the number of successful writes.
func (m *MemoryOutput) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
