// Package validation provides centralized input validation for wifitracker.
package validation

import (
	"fmt"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xtxerr/wifitracker/internal/errors"
)

// =============================================================================
// MAC Address Validation
// =============================================================================

// ValidateMAC checks that mac is a 48-bit MAC address in any notation
// accepted by net.ParseMAC (colon, hyphen or dot separated).
func ValidateMAC(mac string) error {
	if mac == "" {
		return fmt.Errorf("empty MAC address: %w", errors.ErrInvalidMAC)
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("%q: %w", mac, errors.ErrInvalidMAC)
	}
	if len(hw) != 6 {
		return fmt.Errorf("%q is not a 48-bit address: %w", mac, errors.ErrInvalidMAC)
	}
	return nil
}

// NormalizeMAC returns mac in lowercase colon notation (aa:bb:cc:dd:ee:ff).
func NormalizeMAC(mac string) (string, error) {
	if err := ValidateMAC(mac); err != nil {
		return "", err
	}
	hw, _ := net.ParseMAC(mac)
	return hw.String(), nil
}

// OUI returns the 24-bit organizationally unique identifier of mac.
func OUI(mac string) ([3]byte, error) {
	var oui [3]byte
	if err := ValidateMAC(mac); err != nil {
		return oui, err
	}
	hw, _ := net.ParseMAC(mac)
	copy(oui[:], hw[:3])
	return oui, nil
}

// =============================================================================
// SSID Validation
// =============================================================================

// MaxSSIDLength is the 802.11 limit on SSID octets.
const MaxSSIDLength = 32

// ValidateSSID checks a network name used as a query key.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return fmt.Errorf("empty SSID: %w", errors.ErrInvalidSSID)
	}
	if len(ssid) > MaxSSIDLength {
		return fmt.Errorf("SSID too long: %d octets, maximum %d: %w", len(ssid), MaxSSIDLength, errors.ErrInvalidSSID)
	}
	return nil
}

// =============================================================================
// Alias Validation
// =============================================================================

// MaxAliasLength is the maximum alias length in characters.
const MaxAliasLength = 255

// ValidateAlias checks a human-readable device alias.
func ValidateAlias(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("empty alias: %w", errors.ErrInvalidAlias)
	}
	if !utf8.ValidString(alias) {
		return fmt.Errorf("alias is not valid UTF-8: %w", errors.ErrInvalidAlias)
	}
	if n := utf8.RuneCountInString(alias); n > MaxAliasLength {
		return fmt.Errorf("alias too long: %d characters, maximum %d: %w", n, MaxAliasLength, errors.ErrInvalidAlias)
	}

	for i, r := range alias {
		if unicode.IsControl(r) {
			return fmt.Errorf("alias cannot contain control characters at position %d: %w", i, errors.ErrInvalidAlias)
		}
	}

	return nil
}
