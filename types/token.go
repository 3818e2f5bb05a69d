package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// TokenKind classifies a token referenced by a transfer path. The set is
// closed: a token is either an avatar's native trust-network token or one of
// the two ERC20 wrapper variants.
type TokenKind uint8

const (
	// KindAvatar is a bare trust-network token, spendable directly by the
	// settlement contract.
	KindAvatar TokenKind = iota
	// KindWrappedDemurraged is an ERC20 wrapper whose balance decays at a
	// fixed per-block rate. Partial unwraps are exact.
	KindWrappedDemurraged
	// KindWrappedInflationary is an ERC20 wrapper tracking the global
	// inflation index. Only full-balance unwraps are meaningful.
	KindWrappedInflationary
)

// String returns the kind's wire label.
func (k TokenKind) String() string {
	switch k {
	case KindAvatar:
		return "avatar"
	case KindWrappedDemurraged:
		return "wrapped-demurraged"
	case KindWrappedInflationary:
		return "wrapped-inflationary"
	default:
		return "unknown"
	}
}

// TokenInfo describes one token address appearing in a path: the avatar that
// issued it and how (whether) it is wrapped.
type TokenInfo struct {
	Token  common.Address
	Avatar common.Address
	Kind   TokenKind
}

// IsWrapped reports whether the token is an ERC20 wrapper rather than a
// native trust-network balance.
func (t TokenInfo) IsWrapped() bool {
	return t.Kind == KindWrappedDemurraged || t.Kind == KindWrappedInflationary
}
