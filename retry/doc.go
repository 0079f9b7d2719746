// Package retry provides a bounded, fixed-delay retry policy for calls
// against unreliable network dependencies.
//
// A Policy is a value: maximum attempts, the delay between attempts, and a
// predicate deciding which errors are worth another attempt. Single-attempt
// clients simply do not wrap their calls in a Policy.
package retry
