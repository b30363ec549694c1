package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Kind 错误类别
type Kind int

const (
	KindInternal Kind = iota

	// 调用方错误
	KindInvalidTimeWindow
	KindInvalidSupply
	KindInvalidIdentifier
	KindInvalidCiphertext
	KindOverflow
	KindUnauthorized
	KindLaunchNotFound
	KindParticipationNotFound

	// 生命周期错误
	KindLaunchNotActive
	KindLaunchNotStarted
	KindLaunchAlreadyFinalized
	KindLaunchNotEnded
	KindLaunchNotFinalized
	KindAlreadyClaimed
	KindNothingToClaim

	// 协作方错误
	KindAccessDenied
	KindIssuance
)

var kindNames = map[Kind]string{
	KindInternal:               "Internal",
	KindInvalidTimeWindow:      "InvalidTimeWindow",
	KindInvalidSupply:          "InvalidSupply",
	KindInvalidIdentifier:      "InvalidIdentifier",
	KindInvalidCiphertext:      "InvalidCiphertext",
	KindOverflow:               "Overflow",
	KindUnauthorized:           "Unauthorized",
	KindLaunchNotFound:         "LaunchNotFound",
	KindParticipationNotFound:  "ParticipationNotFound",
	KindLaunchNotActive:        "LaunchNotActive",
	KindLaunchNotStarted:       "LaunchNotStarted",
	KindLaunchAlreadyFinalized: "LaunchAlreadyFinalized",
	KindLaunchNotEnded:         "LaunchNotEnded",
	KindLaunchNotFinalized:     "LaunchNotFinalized",
	KindAlreadyClaimed:         "AlreadyClaimed",
	KindNothingToClaim:         "NothingToClaim",
	KindAccessDenied:           "AccessDenied",
	KindIssuance:               "IssuanceError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Retryable 同样的调用稍后重试是否可能成功
func (k Kind) Retryable() bool {
	switch k {
	case KindLaunchNotStarted, KindLaunchNotEnded, KindLaunchNotFinalized, KindIssuance, KindInternal:
		return true
	}
	return false
}

// Error 账本错误，携带类别与出错对象
type Error struct {
	Kind     Kind
	LaunchID uint64
	Address  common.Address
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.LaunchID != 0 {
		msg += fmt.Sprintf(" (launch %d", e.LaunchID)
		if e.Address != (common.Address{}) {
			msg += ", " + e.Address.Hex()
		}
		msg += ")"
	} else if e.Address != (common.Address{}) {
		msg += " (" + e.Address.Hex() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按类别匹配。LaunchAlreadyFinalized 同时视为 LaunchNotActive。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindLaunchNotActive && e.Kind == KindLaunchAlreadyFinalized
}

// 用于 errors.Is 的哨兵错误
var (
	ErrInvalidTimeWindow      = &Error{Kind: KindInvalidTimeWindow}
	ErrInvalidSupply          = &Error{Kind: KindInvalidSupply}
	ErrInvalidIdentifier      = &Error{Kind: KindInvalidIdentifier}
	ErrInvalidCiphertext      = &Error{Kind: KindInvalidCiphertext}
	ErrOverflow               = &Error{Kind: KindOverflow}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrLaunchNotFound         = &Error{Kind: KindLaunchNotFound}
	ErrParticipationNotFound  = &Error{Kind: KindParticipationNotFound}
	ErrLaunchNotActive        = &Error{Kind: KindLaunchNotActive}
	ErrLaunchNotStarted       = &Error{Kind: KindLaunchNotStarted}
	ErrLaunchAlreadyFinalized = &Error{Kind: KindLaunchAlreadyFinalized}
	ErrLaunchNotEnded         = &Error{Kind: KindLaunchNotEnded}
	ErrLaunchNotFinalized     = &Error{Kind: KindLaunchNotFinalized}
	ErrAlreadyClaimed         = &Error{Kind: KindAlreadyClaimed}
	ErrNothingToClaim         = &Error{Kind: KindNothingToClaim}
	ErrAccessDenied           = &Error{Kind: KindAccessDenied}
	ErrIssuance               = &Error{Kind: KindIssuance}
)

// KindOf 提取错误类别，非账本错误视为 Internal
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

func newError(kind Kind, launchID uint64, addr common.Address, err error) *Error {
	return &Error{Kind: kind, LaunchID: launchID, Address: addr, Err: err}
}
