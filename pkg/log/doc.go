/*
Package log provides structured logging via zerolog: a global Logger
initialized once by Init, plain Info/Debug/Warn/Error/Fatal helpers for the
common case, and WithComponent/WithNodeID/WithPartition/WithCollection for
child loggers that carry context (a partition's (collection_id,
partition_id), a node id, a collection name) through the rest of a call.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.Info("pserver starting")

	partLog := log.WithPartition(collectionID, partitionID)
	partLog.Info().Uint64("term", term).Msg("raft leader elected")

JSONOutput true produces one JSON object per line (production); false uses
zerolog's console writer (local development).
*/
package log
