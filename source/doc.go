// Package source adapts a camera to the pipeline's buffer-loan protocol.
//
// An Adapter primes the camera with raw buffers sized exactly for one frame,
// forwards each delivered frame to the pipeline, returns buffers to the
// camera through Recycle and logs the camera's non-fatal errors. Every
// attachment gets a fresh UUID so log lines from successive sources can be
// told apart.
package source
