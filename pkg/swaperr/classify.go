package swaperr

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type predicate func(err error, text string) bool

type rule struct {
	kind  Kind
	match predicate
}

// rules is evaluated top to bottom; the first match wins. Rate limiting sits
// ahead of the network rule so a 429 is never reported as a connection problem.
var rules = []rule{
	{KindUserRejected, contains(
		"user rejected", "user denied", "rejected by user", "denied transaction",
		"user cancelled", "user canceled", "action_rejected", "code 4001", "code: 4001",
	)},
	{KindRateLimitExceeded, anyOf(
		matches(`\b429\b`),
		contains("too many requests", "rate limit", "ratelimit", "rate-limit"),
	)},
	{KindQuoteExpired, anyOf(
		allOf(contains("quote"), contains("expired", "expire", "stale", "no longer valid")),
		contains("stale quote", "deadline exceeded for quote"),
	)},
	{KindSlippageExceeded, contains(
		"slippage", "price impact", "too little received", "insufficient output amount",
		"return amount is not enough", "min return",
	)},
	{KindInsufficientGas, contains(
		"insufficient funds for gas", "out of gas", "intrinsic gas too low",
		"gas required exceeds allowance", "insufficient funds for fee", "not enough gas",
	)},
	{KindInsufficientBalance, contains(
		"insufficient balance", "insufficient funds", "exceeds balance",
		"transfer amount exceeds", "insufficient token balance",
	)},
	{KindApprovalFailed, contains(
		"approve", "approval", "allowance",
	)},
	{KindUnsupportedRoute, contains(
		"no route", "no routes", "route not found", "unsupported chain", "unsupported token",
		"not supported", "no available quotes", "pair not available",
	)},
	{KindNetworkError, anyOf(
		isNetError,
		contains(
			"network", "timeout", "timed out", "connection refused", "connection reset",
			"no such host", "bad gateway", "service unavailable", "gateway timeout",
			"failed to fetch",
		),
		matches(`\beof\b`, `\b50[234]\b`),
	)},
	{KindExecutionFailed, contains(
		"reverted", "execution failed", "transaction failed", "refunded", "execution reverted",
	)},
}

func classifyKind(err error) Kind {
	text := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(err, text) {
			return r.kind
		}
	}
	return KindUnknown
}

func contains(phrases ...string) predicate {
	return func(_ error, text string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

func anyOf(preds ...predicate) predicate {
	return func(err error, text string) bool {
		for _, p := range preds {
			if p(err, text) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...predicate) predicate {
	return func(err error, text string) bool {
		for _, p := range preds {
			if !p(err, text) {
				return false
			}
		}
		return true
	}
}

func matches(patterns ...string) predicate {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return func(_ error, text string) bool {
		for _, re := range res {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}
}

func isNetError(err error, _ string) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

var (
	retryPhrase = regexp.MustCompile(`(?i)(?:retry|try again)\s+(?:in|after)\s+(\d+(?:\.\d+)?)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h)\b`)
	retryHeader = regexp.MustCompile(`(?i)retry-after:?\s*(\d+)`)
)

// ParseRetryAfter extracts a wait duration from free-form provider text such as
// "retry in 47 minutes" or "retry after 2 hours". The grammar is best effort;
// ok is false when nothing recognizable is found.
func ParseRetryAfter(text string) (time.Duration, bool) {
	if m := retryPhrase.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		unit := time.Second
		switch strings.ToLower(m[2])[0] {
		case 'm':
			unit = time.Minute
		case 'h':
			unit = time.Hour
		}
		return time.Duration(n * float64(unit)), true
	}
	if m := retryHeader.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}
