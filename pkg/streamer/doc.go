// Package streamer exposes a regular file or named pipe as a push-based,
// backpressure-aware byte stream.
//
// A Session owns one read-only descriptor. Stream attaches a consumer-facing
// *Stream and starts the read loop; Detach stops the loop without closing the
// descriptor, and a later Stream resumes from the descriptor's current offset.
// Close releases the descriptor and is rejected while a stream is attached.
//
// Invariants:
// - At most one read is in flight per session.
// - Bytes reach consumers in file order, each byte once, across any number of
//   detach/attach cycles. A read that completes after its stream detached is
//   cached and replayed to the next stream.
// - When a stream reports it is not ready, no further read is scheduled until
//   its consumer drains it, and then exactly one is.
// - Lifecycle results go either to the caller's Continuation or, when none is
//   given, to the session's signal handlers. Handlers run on the session's
//   scheduler loop, in registration order, and must not block.
//
// Usage:
//
//	s := streamer.New(streamer.Options{ChunkSize: 4096, CloseOnEndOfFile: true})
//	if err := s.OpenWait(ctx, "/var/log/app.log"); err != nil {
//		return err
//	}
//	stream, err := s.Stream()
//	if err != nil {
//		return err
//	}
//	_, err = io.Copy(os.Stdout, stream)
package streamer
