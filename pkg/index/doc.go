/*
Package index implements the per-partition inverted index: a fixed schema
derived from a Collection's scalar_field_index, an asynchronous event
channel decoupling indexing from the write-commit path, a commit-rate-
limiting flush policy, and the three search primitives (Filter, Query,
Exist).

Reserved bookkeeping fields (_iid, _iid_bytes), a single-producer/
single-consumer event channel, and commit-counter semantics (flush() skips
a commit once more than N flushes have elapsed since the last indexing
activity) keep indexing off the write-commit path without giving up
flush-rate control. Filter-bitmap postings use
github.com/RoaringBitmap/roaring.
*/
package index
