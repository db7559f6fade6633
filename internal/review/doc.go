// Package review is the core of sift's finding synthesis: the normalized
// Finding model, ingestion/validation of analyzer payloads, the pure
// confidence scorer, the deduplicator/merger with conflict surfacing, the
// threshold filter, the priority sorter, and the Pipeline that gathers
// analyzer output concurrently and reduces it single-threaded. The Store
// interface (persistence) and Prometheus metrics live here too.
package review
