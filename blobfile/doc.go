// Package blobfile stores a sequence of gbin-encoded records in a single
// file that can be opened through a memory mapping and decoded either into
// owned values or as zero-copy views over the mapping.
//
// File layout:
//
//	header (80 bytes, little-endian, itself gbin-encoded)
//	metadata (deterministic CBOR map of strings, MetaLen bytes)
//	zero padding to a 16-byte boundary
//	payload (StoredLen bytes)
//
// The payload is the records encoded back to back as a gbin.List with the
// header's alignment, optionally compressed with LZ4 or zstd. Payloads that
// do not shrink are stored uncompressed. A BLAKE3 checksum covers the stored
// payload, and a fingerprint of the record type's wire shape guards against
// opening a file with the wrong Go type.
package blobfile
