package executor

import (
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/types"
)

// Listener receives executor notifications in transition order. Callbacks run
// synchronously and must not call back into Confirm, Retry, Cancel or Resume.
type Listener interface {
	OnStatusChange(from, to types.Status, progress Progress)
	OnProgress(progress Progress)
	OnTransactionHash(step int, hash string)
	OnRateChange(change types.RateChange)
	OnError(err *swaperr.SwapError)
}

// ListenerFuncs adapts optional functions to a Listener; nil fields are skipped
type ListenerFuncs struct {
	StatusChange    func(from, to types.Status, progress Progress)
	Progress        func(progress Progress)
	TransactionHash func(step int, hash string)
	RateChange      func(change types.RateChange)
	Error           func(err *swaperr.SwapError)
}

func (l ListenerFuncs) OnStatusChange(from, to types.Status, progress Progress) {
	if l.StatusChange != nil {
		l.StatusChange(from, to, progress)
	}
}

func (l ListenerFuncs) OnProgress(progress Progress) {
	if l.Progress != nil {
		l.Progress(progress)
	}
}

func (l ListenerFuncs) OnTransactionHash(step int, hash string) {
	if l.TransactionHash != nil {
		l.TransactionHash(step, hash)
	}
}

func (l ListenerFuncs) OnRateChange(change types.RateChange) {
	if l.RateChange != nil {
		l.RateChange(change)
	}
}

func (l ListenerFuncs) OnError(err *swaperr.SwapError) {
	if l.Error != nil {
		l.Error(err)
	}
}
