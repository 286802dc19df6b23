// Package pending tracks calls sent to the agent that are still waiting for a
// reply.
//
// # Table
//
// A Table maps call ids to waiting callers. It exposes the only operations
// allowed to touch an in-flight call:
//
//   - Register(id, deadline): create the entry and arm its timer
//   - Resolve(id, payload): complete with the agent's reply
//   - Fail(id, err): complete with an error
//   - Expire(id): complete with ErrTimeout
//   - FailAll(err): complete every entry, used when the connection drops
//
// Each entry is completed exactly once, by whichever of these acts first, and
// is removed from the table in the same critical section. The others find
// the id missing and do nothing, so a late reply racing the deadline timer is
// harmless.
//
// # Waiting
//
// Register returns a *Call. Call.Wait blocks until the call completes or the
// caller's context ends; an abandoned call is purged through Expire so no
// entry outlives either its deadline or its caller.
//
// # Late Replies
//
// Completed ids are remembered for a while (see internal/dedupe) so the
// connection layer can report a reply for an expired call differently from
// a reply for an id that was never issued.
package pending
