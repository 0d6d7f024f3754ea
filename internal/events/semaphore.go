package events

// Semaphore is a channel-based counting semaphore bounding how many
// notifications are resolved concurrently.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(cap int) *Semaphore {
	if cap <= 0 {
		cap = 1
	}
	return &Semaphore{ch: make(chan struct{}, cap)}
}

// Acquire blocks until a slot is free.
func (s *Semaphore) Acquire() {
	s.ch <- struct{}{}
}

// Release frees a slot. Must only be called after Acquire.
func (s *Semaphore) Release() {
	<-s.ch
}

// Available returns the number of free slots.
func (s *Semaphore) Available() int {
	return cap(s.ch) - len(s.ch)
}
