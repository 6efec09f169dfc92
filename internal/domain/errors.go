package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNotSwap               = errors.New("action is not a swap")
	ErrNotStreaming          = errors.New("swap is not streaming")
	ErrNoDirection           = errors.New("direction could not be inferred")
	ErrNotTracked            = errors.New("swap does not touch the tracked asset")
	ErrDuplicateTx           = errors.New("transaction already processed")
	ErrBelowThreshold        = errors.New("below opportunity threshold")
	ErrInsufficientLiquidity = errors.New("insufficient venue liquidity")
	ErrSlippageExceeded      = errors.New("slippage above configured maximum")
	ErrExitWindowTooShort    = errors.New("exit window too short")
	ErrMissingCredentials    = errors.New("venue credentials not configured")
	ErrEmptyBook             = errors.New("depth book side is empty")
)
