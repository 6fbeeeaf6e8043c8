package models

import "fmt"

// SourceImage is a caller-owned original. The pipeline only reads Data.
type SourceImage struct {

	// Original file name as provided by the caller, e.g. "photo.png".
	// Used to derive output names, never to locate files.
	Name string

	// Raw encoded image content
	Data []byte
}

// SizeSpec is a target output geometry. Output is stretched to exactly
// Width x Height, source aspect ratio is not preserved.
type SizeSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s SizeSpec) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Valid reports whether both dimensions are positive.
func (s SizeSpec) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Preset sizes offered to users before any custom size is added.
var PresetSizes = []SizeSpec{
	{Width: 800, Height: 600},
	{Width: 1024, Height: 768},
	{Width: 1920, Height: 1080},
}

// ProcessedImage is the output of one (SourceImage, SizeSpec) pair.
type ProcessedImage struct {
	OriginalName string `json:"originalName"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileName     string `json:"fileName"`

	// Relative path of the entry inside the archive
	ArchivePath string `json:"archivePath"`

	// Quality factor the encoder settled on, see encoder.Result
	Quality float64 `json:"quality"`

	// Encoded size in bytes. Kept after Data is released.
	Size int `json:"size"`

	// Encoded bytes. Nil on metadata returned to callers once the
	// run has finished.
	Data []byte `json:"-"`
}

// Metadata returns a copy of p without its encoded bytes.
func (p ProcessedImage) Metadata() ProcessedImage {
	p.Data = nil
	return p
}
