// Package correlation groups JSON log lines by a correlation id and decides,
// per group, whether its lines ever reach the output.
//
// # Contract
//
// The Engine consumes an ordered stream of events from a single queue:
//  1. Line: parse it, find or create the Transaction for its id, then
//     buffer it, flush the whole buffer with it, or pass it through.
//  2. Cleanup: sweep the Store, silently discarding Transactions idle for
//     longer than the timeout.
//  3. Shutdown: stop and return without draining the queue.
//
// Lines that are not JSON, or that lack a string correlation field, are
// written straight to the output and never touch a Transaction.
//
// # Rules
//
// A RuleSet matches a record when any Rule matches; a Rule matches when any
// of its field matchers matches the corresponding field. Flush and
// completion rule sets are evaluated independently, so one line may both
// flush and complete its Transaction.
//
// # Ownership
//
// The Engine owns the Store and every Transaction in it. Apart from
// Engine.Running, nothing in this package is safe for concurrent use;
// serialization is the queue's job.
package correlation
