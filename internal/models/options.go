package models

import "strings"

// Quality is a named quality tier selected by the user
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Tenths returns the quality factor of the tier in tenths, e.g. 9 for
// "high" (0.9). Unknown tiers fall back to medium.
func (q Quality) Tenths() int {
	switch Quality(strings.ToLower(string(q))) {
	case QualityHigh:
		return 9
	case QualityLow:
		return 5
	default:
		return 7
	}
}

// Factor returns the numeric quality factor of the tier in [0.1, 0.9]
func (q Quality) Factor() float64 {
	return float64(q.Tenths()) / 10
}

// Format is an output image format. Its value doubles as the output
// file extension.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Lossy reports whether the quality factor has any effect on the format.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// ProcessingConfig controls how every variant of a batch run is encoded.
type ProcessingConfig struct {
	Quality       Quality `json:"quality"`
	Format        Format  `json:"format"`
	StripMetadata bool    `json:"stripMetadata"`

	// Best-effort size budget for each encoded variant. Zero disables it.
	MaxFileSizeBytes int `json:"maxFileSizeBytes"`
}

type NamingConfig struct {
	Prefix               string `json:"prefix"`
	Suffix               string `json:"suffix"`
	Separator            string `json:"separator"`
	UseSequentialNumbers bool   `json:"useSequentialNumbers"`
}

type ExportConfig struct {

	// Archive base name, offered to users as "<ArchiveName>.zip"
	ArchiveName string `json:"archiveName"`

	// Place each entry under a "<w>x<h>/" folder
	OrganizeBySize bool `json:"organizeBySize"`

	// Hand every variant to the individual emitter as it is produced
	EmitIndividualDownloads bool `json:"emitIndividualDownloads"`
}

// ArchiveFileName returns the name the sealed archive is offered under.
func (e ExportConfig) ArchiveFileName() string {
	return e.ArchiveName + ".zip"
}
