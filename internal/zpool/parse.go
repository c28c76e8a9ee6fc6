package zpool

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zfsutils/scrubwatch/internal/model"
)

var (
	// percent tokens as zpool prints them while scanning, e.g. "12.34% done"
	percentRx = regexp.MustCompile(`(\d{1,2}\.\d{1,2})%`)
	errorsRx  = regexp.MustCompile(`(?im)^errors:[ \t]*(.*?)[ \t]*$`)
)

// ParseStatus converts raw zpool status output for one pool into a typed
// scan state. Exactly one percent token means a scrub is in progress.
// Otherwise the errors: summary line decides between a clean and a dirty
// completion. More than one percent token, or neither a percent token nor
// an errors: line, is a MalformedStatusError - a hard stop, since the
// tool's output format has changed and guessing could misreport the scan.
func ParseStatus(raw string) (model.ScanState, error) {
	matches := percentRx.FindAllStringSubmatch(raw, -1)
	if len(matches) > 1 {
		return model.ScanState{}, &model.MalformedStatusError{Output: raw}
	}
	if len(matches) == 1 {
		percent, err := strconv.ParseFloat(matches[0][1], 64)
		if err != nil {
			// unreachable with the pattern above
			return model.ScanState{}, &model.MalformedStatusError{Output: raw}
		}
		return model.Scanning(percent), nil
	}

	m := errorsRx.FindStringSubmatch(raw)
	if m == nil {
		return model.ScanState{}, &model.MalformedStatusError{Output: raw}
	}
	detail := m[1]
	if len(detail) >= 3 && strings.EqualFold(detail[:3], "no ") {
		return model.NoErrors(detail), nil
	}
	return model.Errors(detail), nil
}
