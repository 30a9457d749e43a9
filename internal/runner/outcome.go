package runner

import (
	"errors"
	"fmt"

	"polarise-swapper/internal/clients_api/polarise"
)

// Stage is the last step a wallet turn reached
type Stage string

const (
	StageDerive  Stage = "derive"
	StageNonce   Stage = "nonce"
	StageLogin   Stage = "login"
	StageProfile Stage = "profile"
	StageSwap    Stage = "swap"
)

// Status is how the wallet turn ended
type Status string

const (
	StatusFailed       Status = "failed"
	StatusNotEligible  Status = "not_eligible"
	StatusSwapped      Status = "swapped"
	StatusSwapRejected Status = "swap_rejected"
)

// Outcome is the typed result of one wallet turn
type Outcome struct {
	Address string // empty when the key could not be parsed
	Stage   Stage
	Status  Status
	Points  int64
	TxHash  string
	Reason  string // server msg for a rejected swap
	Err     error
}

// Failed reports a turn that stopped before a swap decision
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// CryptoError wraps key parsing and signing failures
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("crypto error: %v", e.Err) }

func (e *CryptoError) Unwrap() error { return e.Err }

// ErrorKind classifies a turn error
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTransport   ErrorKind = "transport"
	KindApplication ErrorKind = "application"
	KindCrypto      ErrorKind = "crypto"
	KindInternal    ErrorKind = "internal"
)

// Kind classifies err into the transport/application/crypto taxonomy
func Kind(err error) ErrorKind {
	var ce *CryptoError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &ce):
		return KindCrypto
	case polarise.IsTransport(err):
		return KindTransport
	case polarise.IsApplication(err):
		return KindApplication
	default:
		return KindInternal
	}
}
