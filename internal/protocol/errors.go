package protocol

import "errors"

var (
	ErrDecode            = errors.New("protocol: malformed result document")
	ErrUnsupportedFormat = errors.New("protocol: unsupported document format")
)
