package core

// errors.go – the error taxonomy of spec §7, as sentinel values wrapped
// with fmt.Errorf("%w: ...", ...) rather than bespoke error structs, in
// keeping with pkg/utils.Wrap's plain-wrapping style used elsewhere in
// this module.
//
// Propagation policy (spec §7):
//   - ErrConfig / ErrInvariant halt the process (fatal at startup, or a
//     logged drop in release builds per the spec's explicit carve-out).
//   - ErrTransport / ErrProtocol / ErrLiquidity / ErrOverflow are
//     recovered locally: the affected pool/edge/path is dropped and the
//     caller continues.
//   - ErrSubmission surfaces to the caller (the executor) but never halts
//     the orchestrator.

import "errors"

var (
	// ErrConfig: missing/invalid env var, malformed address, malformed
	// private key. Fatal at startup.
	ErrConfig = errors.New("config error")

	// ErrTransport: RPC/HTTPS failure or timeout.
	ErrTransport = errors.New("transport error")

	// ErrProtocol: malformed contract response, ABI decode failure.
	ErrProtocol = errors.New("protocol error")

	// ErrLiquidity: pool exists but fails the admission threshold.
	ErrLiquidity = errors.New("liquidity error")

	// ErrOverflow: intermediate arithmetic overflow in profitability math.
	ErrOverflow = errors.New("overflow error")

	// ErrSubmission: all relays refused and fallback disabled or failed.
	ErrSubmission = errors.New("submission error")

	// ErrInvariant: a data-model invariant was violated.
	ErrInvariant = errors.New("invariant violation")
)

// ScanError wraps a whole-batch RPC failure from the pool scanner; unlike
// per-pool fetch errors (which are swallowed), this propagates to the
// orchestrator.
type ScanError struct {
	Chain uint64
	Err   error
}

func (e *ScanError) Error() string {
	return "scan error on chain " + itoa(e.Chain) + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error { return e.Err }

func itoa(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}
