package tor

import (
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// onionV2Pattern matches the retired 16-character v2 format.
var onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

// checksumPrefix is the prefix hashed into a v3 address checksum.
var checksumPrefix = []byte(".onion checksum")

// Onion address validation errors.
var (
	// ErrInvalidOnionAddress is returned when an .onion host is not a valid v3 address.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for v2 addresses, which stopped
	// working in October 2021.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")
)

// IsValidV3Address checks the format and checksum of a v3 onion address.
//
// Design decision: We verify the checksum rather than only the pattern so a
// mistyped address is reported before a slow Tor connection attempt. The
// address is re-derived from its embedded public key, which checks the
// checksum and the version byte in one comparison.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// 32 bytes public key, 2 bytes checksum, 1 byte version.
	derived, err := ComputeV3AddressFromPublicKey(decoded[:32])
	return err == nil && derived == address
}

// computeV3Checksum returns the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// ComputeV3AddressFromPublicKey derives the v3 onion address of an ed25519
// public key.
func ComputeV3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], computeV3Checksum(pubkey, OnionV3Version))
	data[34] = OnionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}

// IsOnionHost reports whether host (optionally with a port) is in the .onion domain.
func IsOnionHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(hostOnly(host), "."))
	return strings.HasSuffix(host, OnionSuffix)
}

// IsOnionURL reports whether rawURL points at an .onion host.
func IsOnionURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return IsOnionHost(u.Host)
}

// ValidateOnionURL checks the host of an .onion URL.
// Non-onion URLs are accepted unchanged.
func ValidateOnionURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !IsOnionHost(u.Host) {
		return nil
	}

	host := strings.ToLower(hostOnly(u.Host))
	// Subdomains of an onion service share its key.
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	host = labels[len(labels)-1] + OnionSuffix

	if IsValidV3Address(host) {
		return nil
	}
	if onionV2Pattern.MatchString(host) {
		return ErrV2AddressDeprecated
	}
	return ErrInvalidOnionAddress
}

// hostOnly strips a port from host if present.
func hostOnly(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}
