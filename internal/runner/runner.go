package runner

// Account session runner
// Drives each wallet through nonce -> sign -> login -> profile -> optional swap
// Every failure ends only that wallet's turn; nothing is retried and nothing persists between turns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polarise-swapper/internal/clients_api/polarise"
	"polarise-swapper/internal/infra/log"
	"polarise-swapper/internal/infra/metrics"
	"polarise-swapper/internal/notify"
	"polarise-swapper/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMinPoints    = 100
	DefaultUsedPoints   = 100
	DefaultTokenSymbol  = "GRISE"
	DefaultAccountDelay = 2 * time.Second
	DefaultCycleDelay   = 5 * time.Second
)

// API is the subset of the Polarise client the runner drives
type API interface {
	GetNonce(ctx context.Context, address string) (string, error)
	Login(ctx context.Context, req polarise.LoginRequest) (string, error)
	ProfileInfo(ctx context.Context, session polarise.Session) (*polarise.Profile, error)
	SwapPoints(ctx context.Context, session polarise.Session, req polarise.SwapRequest) (*polarise.SwapResult, error)
	CloseIdleConnections()
	ResetBreaker()
}

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// KeySource returns the private keys for one sweep
type KeySource func() ([]string, error)

// Options tune the runner; zero values use the Default* constants
type Options struct {
	ReferralCode string
	TokenSymbol  string
	MinPoints    int64
	UsedPoints   int64
	AccountDelay time.Duration
	CycleDelay   time.Duration
	Notifier     notify.Notifier
	Sleep        SleepFunc
	NewSessionID func() string
}

// Runner owns the per-wallet lifecycle
type Runner struct {
	api          API
	referralCode string
	tokenSymbol  string
	minPoints    int64
	usedPoints   int64
	accountDelay time.Duration
	cycleDelay   time.Duration
	notifier     notify.Notifier
	sleep        SleepFunc
	newSessionID func() string
}

// New creates a runner over api
func New(api API, opts Options) *Runner {
	r := &Runner{
		api:          api,
		referralCode: opts.ReferralCode,
		tokenSymbol:  opts.TokenSymbol,
		minPoints:    opts.MinPoints,
		usedPoints:   opts.UsedPoints,
		accountDelay: opts.AccountDelay,
		cycleDelay:   opts.CycleDelay,
		notifier:     opts.Notifier,
		sleep:        opts.Sleep,
		newSessionID: opts.NewSessionID,
	}
	if r.referralCode == "" {
		r.referralCode = polarise.DefaultReferralCode
	}
	if r.tokenSymbol == "" {
		r.tokenSymbol = DefaultTokenSymbol
	}
	if r.minPoints <= 0 {
		r.minPoints = DefaultMinPoints
	}
	if r.usedPoints <= 0 {
		r.usedPoints = DefaultUsedPoints
	}
	if r.accountDelay < 0 {
		r.accountDelay = 0
	}
	if r.cycleDelay < 0 {
		r.cycleDelay = 0
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	if r.sleep == nil {
		r.sleep = SleepContext
	}
	if r.newSessionID == nil {
		r.newSessionID = uuid.NewString
	}
	return r
}

// SleepContext waits for d unless ctx ends first
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run sweeps forever, pausing CycleDelay between sweeps, until ctx is cancelled.
// A key source failure is logged and the cycle is skipped.
func (r *Runner) Run(ctx context.Context, keys KeySource) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		log.LogCycle("New cycle started")
		if _, err := r.Once(ctx, keys); err != nil {
			log.LogError("Failed to load accounts", zap.Error(err))
		}
		log.LogCycle("Cycle finished, restarting shortly", zap.Duration("pause", r.cycleDelay))

		if err := r.sleep(ctx, r.cycleDelay); err != nil {
			return nil
		}
	}
}

// Once loads keys and runs a single sweep
func (r *Runner) Once(ctx context.Context, keys KeySource) ([]Outcome, error) {
	privateKeys, err := keys()
	if err != nil {
		return nil, err
	}
	return r.Sweep(ctx, privateKeys), nil
}

// Sweep processes wallets in list order, pausing AccountDelay after each turn.
// Pooled connections are closed when the sweep ends.
func (r *Runner) Sweep(ctx context.Context, privateKeys []string) []Outcome {
	defer r.api.CloseIdleConnections()

	outcomes := make([]Outcome, 0, len(privateKeys))
	for _, key := range privateKeys {
		if ctx.Err() != nil {
			break
		}

		outcome := r.safeProcess(ctx, key)
		outcomes = append(outcomes, outcome)
		r.record(outcome)

		if err := r.sleep(ctx, r.accountDelay); err != nil {
			break
		}
	}

	metrics.SweepsTotal.Inc()
	return outcomes
}

func (r *Runner) safeProcess(ctx context.Context, key string) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome.Status = StatusFailed
			outcome.Err = fmt.Errorf("wallet turn panicked: %v", p)
		}
	}()
	return r.ProcessAccount(ctx, key)
}

// ProcessAccount runs one wallet turn and reports how it ended. It never returns early with an error:
// the error, if any, is in Outcome.Err.
func (r *Runner) ProcessAccount(ctx context.Context, privateKey string) Outcome {
	// a breaker tripped by an earlier wallet must not fail this one
	r.api.ResetBreaker()

	w, err := wallet.Parse(privateKey)
	if err != nil {
		return Outcome{Stage: StageDerive, Status: StatusFailed, Err: &CryptoError{Err: err}}
	}
	address := w.Address()
	out := Outcome{Address: address}

	log.LogStatus(fmt.Sprintf("Checking account %s", wallet.ShortAddress(address)), zap.String("address", address))

	// 1. nonce
	out.Stage = StageNonce
	nonce, err := r.api.GetNonce(ctx, address)
	if err != nil {
		return failed(out, err)
	}

	// 2. sign + login, one session id for the whole turn
	out.Stage = StageLogin
	signature, err := w.SignChallenge(nonce)
	if err != nil {
		return failed(out, &CryptoError{Err: err})
	}

	session := polarise.Session{
		Address:   address,
		Nonce:     nonce,
		SessionID: r.newSessionID(),
	}
	token, err := r.api.Login(ctx, polarise.LoginRequest{
		Signature:   signature,
		Nonce:       nonce,
		Wallet:      address,
		SessionID:   session.SessionID,
		InviterCode: r.referralCode,
	})
	if err != nil {
		return failed(out, err)
	}
	session.AuthToken = token
	if exp, ok := polarise.TokenExpiry(token); ok {
		log.LogDebug("Auth token expiry", zap.String("address", address), zap.Time("expires_at", exp))
	}

	// 3. profile
	out.Stage = StageProfile
	profile, err := r.api.ProfileInfo(ctx, session)
	if err != nil {
		return failed(out, err)
	}
	out.Points = profile.Points
	metrics.WalletPoints.WithLabelValues(address).Set(float64(profile.Points))
	log.LogStatus(fmt.Sprintf("Current points: %d", profile.Points),
		zap.String("address", address),
		zap.String("user_id", profile.UserIDString()),
		zap.Int64("points", profile.Points))

	if profile.Points < r.minPoints {
		out.Status = StatusNotEligible
		return out
	}

	// 4. swap, signing the same challenge again
	out.Stage = StageSwap
	log.LogStatus(fmt.Sprintf("Points reached %d, swapping %d for %s", r.minPoints, r.usedPoints, r.tokenSymbol))

	swapSignature, err := w.SignChallenge(nonce)
	if err != nil {
		return failed(out, &CryptoError{Err: err})
	}

	result, err := r.api.SwapPoints(ctx, session, polarise.SwapRequest{
		UserID:      profile.UserID,
		UserName:    profile.UserName,
		UserWallet:  address,
		UsedPoints:  r.usedPoints,
		TokenSymbol: r.tokenSymbol,
		Signature:   swapSignature,
		SignMsg:     wallet.ChallengeMessage(nonce),
	})
	if err != nil {
		var appErr *polarise.ApplicationError
		if errors.As(err, &appErr) && appErr.Message != "" &&
			(errors.Is(err, polarise.ErrRejected) || errors.Is(err, polarise.ErrUnexpectedStatus)) {
			out.Status = StatusSwapRejected
			out.Reason = appErr.Message
			out.Err = err
			return out
		}
		return failed(out, err)
	}

	out.Status = StatusSwapped
	out.TxHash = result.TxHash

	event := notify.SwapEvent{
		Address:     address,
		Points:      profile.Points,
		UsedPoints:  r.usedPoints,
		TokenSymbol: r.tokenSymbol,
		TxHash:      result.TxHash,
		ExplorerURL: polarise.ExplorerURL(result.TxHash),
	}
	if err := r.notifier.NotifySwap(ctx, event); err != nil {
		log.LogWarn("Swap notification failed", zap.String("address", address), zap.Error(err))
	}

	return out
}

func failed(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	return out
}

// record logs the outcome and updates metrics
func (r *Runner) record(o Outcome) {
	metrics.WalletTurnsTotal.WithLabelValues(string(o.Stage), string(o.Status)).Inc()

	fields := []zap.Field{
		zap.String("address", o.Address),
		zap.String("stage", string(o.Stage)),
		zap.String("status", string(o.Status)),
	}
	short := wallet.ShortAddress(o.Address)
	if short == "" {
		short = "<invalid key>"
	}

	switch o.Status {
	case StatusSwapped:
		metrics.SwapsTotal.WithLabelValues("success").Inc()
		log.LogSuccess(fmt.Sprintf("Swap succeeded for %s, tx %s", short, o.TxHash),
			append(fields, zap.String("tx_hash", o.TxHash), zap.String("explorer", polarise.ExplorerURL(o.TxHash)))...)
	case StatusSwapRejected:
		metrics.SwapsTotal.WithLabelValues("rejected").Inc()
		log.LogError(fmt.Sprintf("Swap failed for %s: %s", short, o.Reason), append(fields, zap.Error(o.Err))...)
	case StatusNotEligible:
		log.LogStatus(fmt.Sprintf("Not yet eligible (%d/%d points), skipping %s", o.Points, r.minPoints, short),
			append(fields, zap.Int64("points", o.Points))...)
	default:
		if o.Stage == StageSwap {
			metrics.SwapsTotal.WithLabelValues("error").Inc()
		}
		log.LogError(fmt.Sprintf("Account %s failed at %s", short, o.Stage),
			append(fields, zap.String("kind", string(Kind(o.Err))), zap.Error(o.Err))...)
	}
}
