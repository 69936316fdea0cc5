// Package artifact contains concrete implementations of core.ArtifactStore.
//
// Artifacts are versioned blobs scoped by session. Every Save of an existing
// name appends a new version; Get returns the latest one. The invoice tool
// uses the store to keep the raw extraction output of each processed image.
package artifact
