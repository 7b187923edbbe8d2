package sched

import "fmt"

// Kind classifies a fatal scheduler error. The taxonomy matches the one
// fiber job systems this runtime is modeled on use internally (queue
// exhaustion, waiter exhaustion, and the handful of ways a fiber/thread
// primitive can be misused).
type Kind int

const (
	// KindQueueFull means a priority queue had no room for a submission.
	KindQueueFull Kind = iota
	// KindWaiterExhaustion means a Counter already has 16 armed waiters.
	KindWaiterExhaustion
	// KindNullCallback means a Job or fiber was launched with no entry function.
	KindNullCallback
	// KindUninitializedSwitch means a fiber switch targeted a fiber with no live goroutine.
	KindUninitializedSwitch
	// KindThreadCreateFailure means the OS refused to start a worker thread.
	KindThreadCreateFailure
	// KindAffinityFailure means pinning a worker thread to its CPU failed.
	KindAffinityFailure
)

func (k Kind) String() string {
	switch k {
	case KindQueueFull:
		return "queue full"
	case KindWaiterExhaustion:
		return "waiter exhaustion"
	case KindNullCallback:
		return "null callback"
	case KindUninitializedSwitch:
		return "uninitialized switch"
	case KindThreadCreateFailure:
		return "thread create failure"
	case KindAffinityFailure:
		return "affinity failure"
	default:
		return "unknown"
	}
}

// Error is the single exception kind the scheduler surfaces at its API
// boundary. The scheduler never attempts to recover from one of these; the
// caller is expected to treat it as fatal to the submission or boot path
// that produced it.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether err is a *Error of the given kind, so callers can use
// errors.Is(err, sched.ErrQueueFull) style checks against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for errors.Is comparisons. Only Kind is compared, so any
// *Error constructed with a matching Kind (regardless of Msg) satisfies
// errors.Is(err, ErrQueueFull) and friends.
var (
	ErrQueueFull           = &Error{Kind: KindQueueFull}
	ErrWaiterExhaustion    = &Error{Kind: KindWaiterExhaustion}
	ErrNullCallback        = &Error{Kind: KindNullCallback}
	ErrUninitializedSwitch = &Error{Kind: KindUninitializedSwitch}
	ErrThreadCreateFailure = &Error{Kind: KindThreadCreateFailure}
	ErrAffinityFailure     = &Error{Kind: KindAffinityFailure}
)

// errFull and errEmpty are the internal, non-fatal queue signals — they are
// control-flow values the scheduler turns into ErrQueueFull (or a retry) at
// its own boundary, never exposed directly to scheduler clients.
var (
	errFull  = fmt.Errorf("sched: queue full")
	errEmpty = fmt.Errorf("sched: queue empty")
)
