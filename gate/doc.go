/*
Package gate keeps one-hit wonders out of the cache.

An item that is written once and never asked for again costs a cache write,
storage and an eventual eviction while saving nothing. The gate wraps a
bin's backend and drops the first-ever write for each key; only keys the
shared bloom filter has already seen get through. A key earns admission by
being sighted in some earlier processing unit, so anything requested twice
caches normally from its second write onwards.

One filter per bin is persisted in a filter store and shared by every
process and unit. Within a unit the gate works off a private copy loaded
lazily on first use; new sightings accumulate in memory and are merged back
at the end of the unit. The merge is a read-modify-write of shared state,
serialized per bin by an advisory lock:

 1. candidates not already in the unit's filter copy are computed first,
    so units with nothing new never touch the lock
 2. the persisted state is re-read fresh under the lock and candidates are
    re-narrowed against it, so concurrent units neither overwrite each
    other nor double-charge keys toward filter saturation
 3. losing the lock race abandons the unit's admissions

Abandonment is deliberate: filter state is an optimization, and the worst
outcome of a lost update is that some key needs one extra sighting before
its writes pass through. Cache reads and deletes are never affected.
*/
package gate
