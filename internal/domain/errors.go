package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrInvalidAmount      = errors.New("invalid bet amount")
	ErrNoTeamSelected     = errors.New("no team selected")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrWrongNetwork       = errors.New("wrong network")
	ErrWritePending       = errors.New("a bet submission is already pending")
	ErrBettingClosed      = errors.New("betting is closed")
	ErrTxReverted         = errors.New("transaction reverted")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockHeld           = errors.New("lock already held")
)
