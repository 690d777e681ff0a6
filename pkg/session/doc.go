/*
Package session coordinates access to shared store keys.

Identity allocation and segmentation are read-check-write sequences. When several
goroutines or processes share one store, a Guard serializes those sequences per key,
combining a local, reference-counted mutex with an optional DistributedLocker.
*/
package session
