// Package dedupe keeps a bounded, time-limited record of keys that were seen
// recently. The correlation table uses it to remember ids of calls that have
// already completed, so a reply arriving after its caller gave up can be told
// apart from a reply nobody ever asked for.
package dedupe
