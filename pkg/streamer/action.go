package streamer

import "context"

// Do runs a lifecycle action and waits for its outcome. ActionClose detaches
// any attached stream first. Unknown actions fail with ErrInvalidAction.
//
// Do blocks, so it must not be called from a signal handler.
func (s *Session) Do(ctx context.Context, action Action, path string) error {
	result := make(chan error, 1)
	cont := &Continuation{
		Resolve: func(*Session) { result <- nil },
		Reject:  func(err error) { result <- err },
	}

	switch action {
	case ActionOpen:
		s.Open(path, cont)
	case ActionClose:
		s.Detach()
		s.Close(cont)
	default:
		return newError(ErrInvalidAction, string(action), path, nil)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenWait opens path and waits for the descriptor
func (s *Session) OpenWait(ctx context.Context, path string) error {
	return s.Do(ctx, ActionOpen, path)
}

// CloseWait detaches, closes and waits for the descriptor to be released
func (s *Session) CloseWait(ctx context.Context) error {
	return s.Do(ctx, ActionClose, "")
}
