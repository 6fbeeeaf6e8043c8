package encoder

import (
	"errors"
	"fmt"

	"github.com/giobyte8/imgbatch/internal/models"
)

var (
	ErrInvalidGeometry   = errors.New("invalid target geometry")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNotAnImage        = errors.New("content is not a recognized image")
)

// DecodeError reports source bytes that could not be read as an image
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports an unsupported target format or a failed encode
type EncodeError struct {
	Name   string
	Format models.Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf(
		"failed to encode %s as %s: %v",
		e.Name,
		e.Format,
		e.Err,
	)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func checkGeometry(size models.SizeSpec) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, size.Width, size.Height)
	}
	return nil
}
