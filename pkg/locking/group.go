package locking

// Group runs functions with mutual exclusion over sets of keys.
type Group interface {
	// DoWithLock runs fn while holding the lock for key.
	DoWithLock(key string, fn func() error) error
}
