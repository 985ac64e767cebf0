package core

// helpers.go – small parsing conveniences shared by the CLI and HTTP
// front ends, kept separate from types.go since they are presentation
// concerns rather than core data model.

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// ParseChainIDParam parses a decimal chain id from a URL path parameter.
func ParseChainIDParam(s string) (uint64, error) {
	chainID, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid chain id %q", ErrConfig, s)
	}
	return chainID, nil
}

// DefaultTradeSize parses a decimal wei amount, returning zero if s is
// empty or malformed rather than failing the caller.
func DefaultTradeSize(s string) *uint256.Int {
	if s == "" {
		return new(uint256.Int)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
