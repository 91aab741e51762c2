package live

import (
	"errors"
	"sync"
)

// fakeTransport feeds frames from inbox and records writes. Closing inbox
// simulates a clean close from the peer.
type fakeTransport struct {
	acceptErr error

	mu       sync.Mutex
	writeErr error
	sent     []string

	inbox     chan string
	readErr   chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFake() *fakeTransport {
	return &fakeTransport{
		inbox:   make(chan string, 16),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Accept() error { return f.acceptErr }

func (f *fakeTransport) ReadText() (string, error) {
	select {
	case s, ok := <-f.inbox:
		if !ok {
			return "", ErrDisconnected
		}
		return s, nil
	case err := <-f.readErr:
		return "", err
	case <-f.closed:
		return "", errors.New("use of closed network connection")
	}
}

func (f *fakeTransport) WriteText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) failWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// slowTransport parks every write until release is closed.
type slowTransport struct {
	*fakeTransport
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlow() *slowTransport {
	return &slowTransport{
		fakeTransport: newFake(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (s *slowTransport) WriteText(text string) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.fakeTransport.WriteText(text)
}
