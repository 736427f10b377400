package image

import "fmt"

// DecodeError reports an upload that could not be decoded as an image.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodingError reports a raster that could not be turned into a payload.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
