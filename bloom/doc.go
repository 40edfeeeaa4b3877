/*
Package bloom contains the approximate-membership filter backing write
admission decisions.

It is a standard bloom filter: k bit positions per key, derived from a
single xxHash64 pass via double hashing. Membership answers are one-sided:
a negative answer is always correct, a positive answer is wrong with at
most the false positive probability the filter was sized for.

For the admission use case the two error directions cost very differently:

False positives let a one-hit wonder into the backend cache (wasted write,
bounded by the configured probability).
False negatives would suppress writes for keys that deserve caching - the
structure guarantees these cannot happen.

Filters are append-only. There is no removal; a saturated or expired filter
is discarded and a fresh one allocated from the bin configuration. Sizing
follows the usual optimal formulas, so a bin expecting 10k distinct keys at
1% false positives costs about 12KiB of filter state.

The serialized form (MarshalBinary/UnmarshalBinary) is what gates persist
to the filter store. It is versioned so stored state written by older
builds is rejected loudly rather than misread.
*/
package bloom
