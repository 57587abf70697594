package models

import "fmt"

// Flag classifies the outcome of one orchestration pass. The integer values are
// part of the wire contract with callback consumers and must not be renumbered.
type Flag int

const (
	FlagInitiated     Flag = 0 // upload started, progress URL in status_msg
	FlagError         Flag = 1 // fatal, status_msg describes the failure
	FlagPolling       Flag = 2 // poll invocation dispatched, progress URL in status_msg
	FlagPending       Flag = 3 // wait budget exhausted, not yet terminal
	FlagReady         Flag = 4 // upload complete, file descriptor in status_msg
	FlagQuotaExceeded Flag = 5 // fatal, account storage quota exceeded
)

// Terminal reports whether the flag ends the job. Non-terminal flags mean the
// caller must re-invoke with the accumulated parameters to continue.
func (f Flag) Terminal() bool {
	switch f {
	case FlagReady, FlagError, FlagQuotaExceeded:
		return true
	}
	return false
}

func (f Flag) String() string {
	switch f {
	case FlagInitiated:
		return "INITIATED"
	case FlagError:
		return "ERROR"
	case FlagPolling:
		return "POLLING"
	case FlagPending:
		return "PENDING"
	case FlagReady:
		return "READY"
	case FlagQuotaExceeded:
		return "QUOTA_EXCEEDED"
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}
