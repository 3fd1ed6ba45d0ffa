//go:build !unix && !windows

package store

func probeLock(path string) error { return nil }

func isLockError(err error) bool { return false }
