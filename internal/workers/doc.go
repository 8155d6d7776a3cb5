// Package workers sizes worker pools from GOMAXPROCS, which Go sets from the
// container CPU limit, rather than from the host CPU count.
//
// Callers pick a helper for the workload:
//
//	workers.ForCPU(8)   // image decode/encode, 1 per CPU
//	workers.ForIO(16)   // filesystem walks, 2 per CPU
//	workers.ForMixed(8) // read, transform, write; 1.5 per CPU
//
// DERIVE_WORKERS overrides the computed value, still capped by the limit.
package workers
