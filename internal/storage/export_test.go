package storage

import "testing"

// SetMaxEventsPerRead lowers the range read cap for the duration of a test.
func SetMaxEventsPerRead(t testing.TB, n int) {
	old := maxEventsPerRead
	maxEventsPerRead = n
	t.Cleanup(func() { maxEventsPerRead = old })
}
