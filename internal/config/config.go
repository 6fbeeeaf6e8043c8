package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/giobyte8/imgbatch/internal/archive"
	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/services"
)

// Config holds all settings of the imgbatch host program. Defaults match
// what a user sees before touching any option.
type Config struct {
	DirSourceImages string `validate:"required"`
	DirOutput       string `validate:"required"`

	// Presets first, custom sizes after
	Sizes []models.SizeSpec `validate:"min=1"`

	Format        string `validate:"oneof=jpeg png webp"`
	Quality       string `validate:"oneof=high medium low"`
	StripMetadata bool
	MaxFileSizeKB int `validate:"gte=0"`

	NamePrefix     string
	NameSuffix     string
	NameSeparator  string
	NameSequential bool

	ArchiveName     string `validate:"required"`
	OrganizeBySize  bool
	EmitIndividual  bool
	CollisionPolicy string `validate:"oneof=overwrite fail"`

	EncoderBackend string `validate:"oneof=lilliput native"`
	Concurrency    int    `validate:"gte=1"`

	OtelEnabled bool
}

// LookupFunc has the signature of os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load reads the configuration from process environment
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup LookupFunc) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		DirSourceImages: r.str("DIR_SOURCE_IMAGES", ""),
		DirOutput:       r.str("DIR_OUTPUT", ""),
		Format:          strings.ToLower(r.str("OUTPUT_FORMAT", string(models.FormatJPEG))),
		Quality:         strings.ToLower(r.str("OUTPUT_QUALITY", string(models.QualityHigh))),
		StripMetadata:   r.boolean("STRIP_METADATA", false),
		MaxFileSizeKB:   r.integer("MAX_FILE_SIZE_KB", 1024),
		NamePrefix:      r.str("NAME_PREFIX", ""),
		NameSuffix:      r.str("NAME_SUFFIX", "_resized"),
		NameSeparator:   r.str("NAME_SEPARATOR", "_"),
		NameSequential:  r.boolean("NAME_SEQUENTIAL", false),
		ArchiveName:     r.str("ARCHIVE_NAME", "resized_images"),
		OrganizeBySize:  r.boolean("ORGANIZE_BY_SIZE", false),
		EmitIndividual:  r.boolean("EMIT_INDIVIDUAL", false),
		CollisionPolicy: strings.ToLower(r.str("ARCHIVE_ON_COLLISION", "overwrite")),
		EncoderBackend:  strings.ToLower(r.str("ENCODER_BACKEND", "lilliput")),
		Concurrency:     r.integer("BATCH_CONCURRENCY", 1),
		OtelEnabled:     r.boolean("OTEL_ENABLED", false),
	}

	presets := r.sizes("TARGET_SIZES", models.PresetSizes[:1])
	custom := r.sizes("CUSTOM_SIZES", nil)
	cfg.Sizes = append(presets, custom...)

	if r.err != nil {
		return nil, r.err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Processing() models.ProcessingConfig {
	return models.ProcessingConfig{
		Quality:          models.Quality(c.Quality),
		Format:           models.Format(c.Format),
		StripMetadata:    c.StripMetadata,
		MaxFileSizeBytes: c.MaxFileSizeKB * 1024,
	}
}

func (c *Config) Naming() models.NamingConfig {
	return models.NamingConfig{
		Prefix:               c.NamePrefix,
		Suffix:               c.NameSuffix,
		Separator:            c.NameSeparator,
		UseSequentialNumbers: c.NameSequential,
	}
}

func (c *Config) Export() models.ExportConfig {
	return models.ExportConfig{
		ArchiveName:             c.ArchiveName,
		OrganizeBySize:          c.OrganizeBySize,
		EmitIndividualDownloads: c.EmitIndividual,
	}
}

func (c *Config) Batch() services.BatchConfig {
	policy := archive.Overwrite
	if c.CollisionPolicy == "fail" {
		policy = archive.Fail
	}

	batch := services.DefaultBatchConfig()
	batch.Concurrency = c.Concurrency
	batch.CollisionPolicy = policy
	return batch
}

// ParseSizes parses a comma separated list of "<w>x<h>" tokens
func ParseSizes(s string) ([]models.SizeSpec, error) {
	var sizes []models.SizeSpec
	for _, token := range strings.Split(s, ",") {

		// Trim spaces in case of "800x600, 1024x768"
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		w, h, ok := strings.Cut(strings.ToLower(token), "x")
		if !ok {
			return nil, fmt.Errorf("invalid size %q, expected <width>x<height>", token)
		}

		width, err := strconv.Atoi(strings.TrimSpace(w))
		if err != nil {
			return nil, fmt.Errorf("invalid width in size %q: %w", token, err)
		}
		height, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("invalid height in size %q: %w", token, err)
		}

		size := models.SizeSpec{Width: width, Height: height}
		if !size.Valid() {
			return nil, fmt.Errorf("size %q must have positive width and height", token)
		}
		sizes = append(sizes, size)
	}

	return sizes, nil
}

// reader keeps the first parse error so Load can report it once
type reader struct {
	lookup LookupFunc
	err    error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail(fmt.Errorf("invalid integer in %s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.fail(fmt.Errorf("invalid boolean in %s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) sizes(key string, def []models.SizeSpec) []models.SizeSpec {
	v, ok := r.lookup(key)
	if !ok {
		return append([]models.SizeSpec(nil), def...)
	}

	sizes, err := ParseSizes(v)
	if err != nil {
		r.fail(fmt.Errorf("invalid %s: %w", key, err))
		return nil
	}
	return sizes
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
