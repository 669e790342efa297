// Package lvq implements a prototype-based classifier and clusterer
// over dense real-valued vectors (Learning Vector Quantization).
//
// A Codebook holds N prototype vectors in D dimensions. Supervised
// training (LVQ1) sharpens class boundaries around pre-labeled
// prototypes; unsupervised training performs competitive learning,
// an online form of k-means. Evaluation produces either confusion
// matrix statistics over a labeled test set or per-cluster
// quantization error over an unlabeled one. Store/Load fix a
// deterministic big-endian byte representation of a codebook.
//
// The engine is single-threaded by contract: every operation runs to
// completion on the calling goroutine, and bindings layer their own
// locking on top.
package lvq
