package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	// nsPerSecond converts a frequency to a period in nanoseconds.
	nsPerSecond = 1_000_000_000

	// sysfsFileMode is used for attribute writes; the files already exist.
	sysfsFileMode = 0o644
)

// SysfsOutput drives a Linux PWM channel through /sys/class/pwm.
type SysfsOutput struct {
	chipDir    string
	channel    int
	channelDir string

	mu       sync.Mutex
	periodNS int64
	bits     int
}

// NewSysfsOutput returns an output for pwmchip<chip>/pwm<channel> under root
// (normally "/sys/class/pwm").
func NewSysfsOutput(root string, chip, channel int) *SysfsOutput {
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	return &SysfsOutput{
		chipDir:    chipDir,
		channel:    channel,
		channelDir: filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel)),
	}
}

// Configure exports the channel if needed, sets the period for frequencyHz
// and enables the output at zero duty.
func (s *SysfsOutput) Configure(resolutionBits int, frequencyHz int) error {
	if err := validateConfig(resolutionBits, frequencyHz); err != nil {
		return err
	}

	if _, err := os.Stat(s.channelDir); errors.Is(err, os.ErrNotExist) {
		if err := writeAttr(filepath.Join(s.chipDir, "export"), strconv.Itoa(s.channel)); err != nil {
			return fmt.Errorf("exporting pwm channel %d: %w", s.channel, err)
		}
	}

	period := int64(nsPerSecond / frequencyHz)

	// duty_cycle must never exceed period, so zero it first.
	if err := writeAttr(filepath.Join(s.channelDir, "duty_cycle"), "0"); err != nil {
		return fmt.Errorf("resetting duty cycle: %w", err)
	}
	if err := writeAttr(filepath.Join(s.channelDir, "period"), strconv.FormatInt(period, 10)); err != nil {
		return fmt.Errorf("setting period: %w", err)
	}
	if err := writeAttr(filepath.Join(s.channelDir, "enable"), "1"); err != nil {
		return fmt.Errorf("enabling output: %w", err)
	}

	s.mu.Lock()
	s.periodNS = period
	s.bits = resolutionBits
	s.mu.Unlock()

	return nil
}

// Write implements Output by scaling level onto the period.
func (s *SysfsOutput) Write(level int) error {
	s.mu.Lock()
	period, bits := s.periodNS, s.bits
	s.mu.Unlock()

	if period == 0 {
		return ErrNotConfigured
	}
	top := maxLevel(bits)
	if level < 0 || level > top {
		return fmt.Errorf("%w: %d", ErrLevelOutOfRange, level)
	}

	duty := period * int64(level) / int64(top)
	if err := writeAttr(filepath.Join(s.channelDir, "duty_cycle"), strconv.FormatInt(duty, 10)); err != nil {
		return fmt.Errorf("writing duty cycle: %w", err)
	}
	return nil
}

// writeAttr writes a single sysfs attribute.
func writeAttr(path, value string) error {
	return os.WriteFile(path, []byte(value), sysfsFileMode)
}
