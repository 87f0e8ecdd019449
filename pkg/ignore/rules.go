package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"strings"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

// DefaultRuleFiles are the rule file names read in every directory. Later
// names take precedence over earlier ones.
var DefaultRuleFiles = []string{".gitignore", ".ignore"}

// ParseRules compiles the lines of a rule file defined in directory base.
// Blank lines and comments are skipped; bad lines are reported with their
// line number and left out.
func ParseRules(data []byte, base string, depth int) ([]*Pattern, []error) {
	var patterns []*Pattern
	var errs []error

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if skipLine(line) {
			continue
		}

		p, err := Compile(line, base, depth)
		if err != nil {
			msg := err.Error()
			var coded *rdterrors.Error
			if errors.As(err, &coded) {
				msg = coded.Message
			}
			errs = append(errs, rdterrors.Newf(rdterrors.CodeInvalidPattern, base, "line %d: %s", lineNo, msg))
			continue
		}
		patterns = append(patterns, p)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, rdterrors.Wrap(err, rdterrors.CodeIO, base, "failed to read rules"))
	}

	return patterns, errs
}

func skipLine(line string) bool {
	return strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#")
}
