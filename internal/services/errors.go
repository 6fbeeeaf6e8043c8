package services

import (
	"errors"
	"fmt"

	"github.com/giobyte8/imgbatch/internal/models"
)

var (
	ErrEmptyImages = errors.New("no source images given")
	ErrEmptySizes  = errors.New("no target sizes given")
)

type BatchErrorKind int

const (
	EmptyImages BatchErrorKind = iota
	EmptySizes
	ItemFailed
	ArchiveFailed
)

// Stage names the step of a pair that failed
type Stage string

const (
	StageEncode  Stage = "encode"
	StagePackage Stage = "package"
	StageEmit    Stage = "emit"
	StageSeal    Stage = "seal"
)

// BatchError describes why a run produced no archive. For ItemFailed,
// Index is the zero based position of the failing pair in
// image-major, size-minor order.
type BatchError struct {
	Kind  BatchErrorKind
	Stage Stage
	Index int
	Image string
	Size  models.SizeSpec
	Err   error
}

func (e *BatchError) Error() string {
	switch e.Kind {
	case EmptyImages, EmptySizes:
		return fmt.Sprintf("batch rejected: %v", e.Err)
	}

	if e.Kind == ArchiveFailed {
		return fmt.Sprintf("batch failed to seal archive: %v", e.Err)
	}

	return fmt.Sprintf(
		"batch failed at %s of item %d (%s @ %s): %v",
		e.Stage,
		e.Index,
		e.Image,
		e.Size,
		e.Err,
	)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func itemFailed(
	stage Stage,
	index int,
	image string,
	size models.SizeSpec,
	err error,
) *BatchError {
	return &BatchError{
		Kind:  ItemFailed,
		Stage: stage,
		Index: index,
		Image: image,
		Size:  size,
		Err:   err,
	}
}
