package extract

import (
	"regexp"
	"strings"
)

// Word or single punctuation tokens, matching how page text is measured
// for density.
var tokenRe = regexp.MustCompile(`\b\w+\b|[^\w\s]`)

const (
	// minLineLen is the trimmed length below which a line is discarded
	// outright.
	minLineLen = 3

	// sparseTokenCount is the token count below which a line counts as
	// sparse (headers, footers, page numbers).
	sparseTokenCount = 5

	// sparseRunTrigger is the consecutive-sparse-line count at which the
	// accumulated tail is dropped as boilerplate. The drop fires exactly
	// once, the moment the counter reaches this value; it is an
	// equality trigger, not a threshold.
	sparseRunTrigger = 20
)

// cleanPage strips the watermark from a page's raw text and suppresses
// long runs of short or sparse lines.
//
// The rules, applied line by line:
//   - lines shorter than 3 characters after trimming are discarded;
//   - a line with fewer than 5 tokens increments a consecutive-sparse
//     counter, a denser line resets it;
//   - when the counter reaches exactly 20 the last 20 accumulated lines
//     are dropped, and while it stays at or above 20 further sparse lines
//     are skipped entirely until a dense line resets the run.
func cleanPage(raw, watermark string) string {
	if watermark != "" {
		raw = strings.ReplaceAll(raw, watermark, "")
	}

	var (
		kept  []string
		count int
	)
	for _, line := range strings.Split(raw, "\n") {
		if len(strings.TrimSpace(line)) < minLineLen {
			continue
		}

		tokens := tokenRe.FindAllString(line, -1)

		if count == sparseRunTrigger {
			if len(kept) >= sparseRunTrigger {
				kept = kept[:len(kept)-sparseRunTrigger]
			} else {
				kept = kept[:0]
			}
		}
		if len(tokens) < sparseTokenCount && count >= sparseRunTrigger {
			count++
			continue
		}
		if len(tokens) < sparseTokenCount {
			count++
		} else {
			count = 0
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}
