package protocol

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables forming the contract with mutation scripts.
const (
	EnvAPI    = "APPLYCTL_API"
	EnvResult = "APPLYCTL_RESULT"
	EnvResume = "APPLYCTL_RESUME"
)

// APIVersion is the protocol version advertised through EnvAPI.
const APIVersion = "1"

// Channel is the side channel a mutation script reports through. It owns
// an ephemeral directory holding the result path and, when resuming, the
// resume metadata path.
type Channel struct {
	dir        string
	codec      Codec
	resultPath string
	resumePath string
}

// NewChannel allocates the side-channel directory. resume, when non-nil,
// is encoded to the resume path before the script starts. Callers must
// Close the channel on every path out.
func NewChannel(codec Codec, resume any) (*Channel, error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	dir, err := os.MkdirTemp("", "applyctl-")
	if err != nil {
		return nil, fmt.Errorf("protocol: side-channel dir: %w", err)
	}
	ch := &Channel{
		dir:        dir,
		codec:      codec,
		resultPath: filepath.Join(dir, "result."+codec.Name()),
	}
	if resume != nil {
		ch.resumePath = filepath.Join(dir, "resume."+codec.Name())
		if err := codec.Encode(ch.resumePath, resume); err != nil {
			ch.Close()
			return nil, fmt.Errorf("protocol: resume metadata: %w", err)
		}
	}
	return ch, nil
}

// Environ returns the overlay entries that expose the channel to the
// script.
func (c *Channel) Environ() []string {
	env := []string{
		EnvAPI + "=" + APIVersion,
		EnvResult + "=" + c.resultPath,
	}
	if c.resumePath != "" {
		env = append(env, EnvResume+"="+c.resumePath)
	}
	return env
}

// ResultPath returns the path the script may write its result to.
func (c *Channel) ResultPath() string {
	return c.resultPath
}

// Decode reads whatever the script left at the result path. A missing
// file yields an empty result.
func (c *Channel) Decode() (*Result, error) {
	return c.codec.DecodeResult(c.resultPath)
}

// Close removes the channel directory and everything in it.
func (c *Channel) Close() error {
	return os.RemoveAll(c.dir)
}
