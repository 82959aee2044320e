package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// VehicleIDFromVIN derives a 32-byte keccak-256 vehicle key from a VIN, rendered as 0x-prefixed hex.
// The VIN is trimmed and upper-cased first so formatting differences map to one key.
func VehicleIDFromVIN(vin string) (VehicleID, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if vin == "" {
		return "", fmt.Errorf("%w: vin is empty", ErrInvalidInput)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(vin))
	return VehicleID("0x" + hex.EncodeToString(h.Sum(nil))), nil
}
