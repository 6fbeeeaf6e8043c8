package encoder

import (
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/giobyte8/imgbatch/internal/models"
)

// Sniff inspects the magic bytes of src and rejects anything that is not
// an image with a DecodeError. The detected type is returned on success.
func Sniff(src models.SourceImage) (types.Type, error) {
	if len(src.Data) == 0 {
		return types.Unknown, &DecodeError{Name: src.Name, Err: ErrNotAnImage}
	}

	kind, err := filetype.Match(src.Data)
	if err != nil {
		return types.Unknown, &DecodeError{Name: src.Name, Err: err}
	}

	if kind == filetype.Unknown || !filetype.IsImage(src.Data) {
		return kind, &DecodeError{Name: src.Name, Err: ErrNotAnImage}
	}

	return kind, nil
}
