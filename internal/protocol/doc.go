// Package protocol owns the side-channel contract between applyctl and
// the mutation scripts it runs.
//
// Ownership boundary:
// - the environment variables advertised to scripts
// - the result/resume document codecs
// - the ephemeral channel directory lifecycle
//
// A script's only obligation is to exit zero on success; writing a result
// document to the advertised path is optional.
package protocol
