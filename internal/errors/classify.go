package errors

import (
	"errors"
	"syscall"
)

// Category represents the type of error for display and handling purposes.
type Category int

const (
	// CategoryUnknown is the default for unclassified errors.
	CategoryUnknown Category = iota
	// CategoryUser indicates an error the user can fix (bad input, missing args).
	CategoryUser
	// CategorySystem indicates a system-level error (storage down, corrupt data).
	CategorySystem
	// CategoryRecoverable indicates an error that can be automatically retried.
	CategoryRecoverable
	// CategoryPolicy indicates the platform refused the request (permission, quota).
	CategoryPolicy
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRecoverable:
		return "recoverable"
	case CategoryPolicy:
		return "policy"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if IsUserError(err) || errors.Is(err, ErrValidation) {
		return CategoryUser
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrQuotaExceeded) {
		return CategoryPolicy
	}
	if IsSystemError(err) || isSystemLevel(err) {
		return CategorySystem
	}
	if IsRecoverableError(err) || isRecoverablePattern(err) {
		return CategoryRecoverable
	}

	return CategoryUnknown
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Classify(err) {
	case CategoryUser:
		return 2
	case CategorySystem:
		return 3
	case CategoryPolicy:
		return 4
	default:
		return 1
	}
}

func isSystemLevel(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOSPC, syscall.EACCES, syscall.EPERM, syscall.EIO, syscall.EROFS:
			return true
		}
	}

	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrCorruptRecord)
}

func isRecoverablePattern(err error) bool {
	if errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrDaemonNotRunning) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ETIMEDOUT, syscall.ECONNREFUSED, syscall.ECONNRESET:
			return true
		}
	}

	return false
}
