package naming

import (
	"fmt"
	"strings"

	"github.com/giobyte8/imgbatch/internal/models"
)

// FileName derives the output file name for one variant:
//
//	prefix + stem + separator + "<w>x<h>" + suffix [+ separator + seq] + "." + format
//
// seq is only appended when cfg.UseSequentialNumbers is set and seq is
// positive. Characters in prefix, suffix and separator are not checked.
func FileName(
	originalName string,
	width int,
	height int,
	cfg models.NamingConfig,
	format models.Format,
	seq int,
) string {
	var b strings.Builder
	b.WriteString(cfg.Prefix)
	b.WriteString(Stem(originalName))
	b.WriteString(cfg.Separator)
	fmt.Fprintf(&b, "%dx%d", width, height)
	b.WriteString(cfg.Suffix)

	if cfg.UseSequentialNumbers && seq > 0 {
		fmt.Fprintf(&b, "%s%d", cfg.Separator, seq)
	}

	b.WriteString(".")
	b.WriteString(string(format))
	return b.String()
}

// Stem strips everything from the last '.' onwards. A name without any
// dot is returned whole.
func Stem(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// Sequence hands out run-scoped sequence numbers starting at 1.
// A Sequence belongs to a single run and is not safe for concurrent use.
type Sequence struct {
	last int
}

func (s *Sequence) Next() int {
	s.last++
	return s.last
}

// Last returns the most recently issued number, 0 if none.
func (s *Sequence) Last() int {
	return s.last
}
