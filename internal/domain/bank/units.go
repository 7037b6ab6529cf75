package bank

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the fixed-point scale of the contract's currency amounts.
const EtherDecimals = 18

// Bytes32 is the contract's fixed-length string slot.
type Bytes32 [32]byte

// ParseEther converts a human decimal string ("1.5") into wei.
// At most 18 fraction digits are accepted. Whitespace, exponents and a
// plus sign are rejected. Negative values are rejected
// because the contract takes unsigned amounts.
func ParseEther(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE+ \t\n\r") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > EtherDecimals {
		return nil, fmt.Errorf("%w: fractional component exceeds %d decimals", ErrInvalidAmount, EtherDecimals)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}

	return d.Shift(EtherDecimals).BigInt(), nil
}

// FormatEther renders wei as a decimal ether string. The output always has a
// fractional part, so two ether is "2.0".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(wei, -EtherDecimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatBytes32String encodes text into a NUL-padded bytes32 slot. The last
// byte is reserved for the terminator, so names are limited to 31 bytes.
func FormatBytes32String(text string) (Bytes32, error) {
	var out Bytes32
	if !utf8.ValidString(text) {
		return out, fmt.Errorf("%w: not valid UTF-8", ErrInvalidBytes32)
	}
	if len(text) > len(out)-1 {
		return out, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(text))
	}
	copy(out[:], text)
	return out, nil
}

// ParseBytes32String decodes a NUL-terminated bytes32 slot back into text.
func ParseBytes32String(b Bytes32) (string, error) {
	if b[len(b)-1] != 0 {
		return "", fmt.Errorf("%w: no null terminator", ErrInvalidBytes32)
	}
	n := bytes.IndexByte(b[:], 0)
	if !utf8.Valid(b[:n]) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidBytes32)
	}
	return string(b[:n]), nil
}
