// Package identity resolves the MQTT client identifier for the controller.
//
// An explicitly configured identifier is used verbatim. Otherwise the
// identifier is derived from a prefix and the device's 6-byte hardware
// address, e.g. "ESP32" + d8:a0:1d:40:18:b4 -> "ESP32d8a01d4018b4".
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
)

// hardwareAddrLen is the length of an EUI-48 MAC address.
const hardwareAddrLen = 6

var (
	// ErrInvalidHardwareAddress is returned when the hardware address is not 6 bytes.
	ErrInvalidHardwareAddress = errors.New("identity: hardware address must be 6 bytes")

	// ErrNoSource is returned when no explicit id is set and no address source is available.
	ErrNoSource = errors.New("identity: no client id configured and no hardware address source")
)

// HardwareAddressSource supplies the stable hardware identifier.
type HardwareAddressSource interface {
	HardwareAddr() (net.HardwareAddr, error)
}

// Resolve returns explicit when set, otherwise derives the identifier from
// prefix and the address reported by src.
func Resolve(explicit, prefix string, src HardwareAddressSource) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if src == nil {
		return "", ErrNoSource
	}

	mac, err := src.HardwareAddr()
	if err != nil {
		return "", fmt.Errorf("reading hardware address: %w", err)
	}

	return Derive(prefix, mac)
}

// Derive builds "<prefix><12 lowercase hex chars>" from a 6-byte address.
func Derive(prefix string, mac net.HardwareAddr) (string, error) {
	if len(mac) != hardwareAddrLen {
		return "", fmt.Errorf("%w: got %d", ErrInvalidHardwareAddress, len(mac))
	}
	return prefix + hex.EncodeToString(mac), nil
}

// Interface reads the hardware address of a named network interface.
type Interface string

// HardwareAddr implements HardwareAddressSource.
func (i Interface) HardwareAddr() (net.HardwareAddr, error) {
	iface, err := net.InterfaceByName(string(i))
	if err != nil {
		return nil, fmt.Errorf("looking up interface %q: %w", string(i), err)
	}
	return iface.HardwareAddr, nil
}

// Static is a fixed hardware address, used when the address is known ahead
// of time or supplied by a platform driver.
type Static net.HardwareAddr

// HardwareAddr implements HardwareAddressSource.
func (s Static) HardwareAddr() (net.HardwareAddr, error) {
	return net.HardwareAddr(s), nil
}
