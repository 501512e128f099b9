package content

import "strings"

// Problem names why a content source cannot be stored. The zero value
// means the source is acceptable.
type Problem string

const (
	ProblemEmpty    Problem = "content must not be empty"
	ProblemTooLarge Problem = "content exceeds source_max_chars"
	ProblemWeight   Problem = "weight must be between 0 and 5"
)

// Check returns the first problem with a source body and weight. A
// maxChars of zero or less disables the size limit.
func Check(body string, weight float64, maxChars int) Problem {
	switch {
	case strings.TrimSpace(body) == "":
		return ProblemEmpty
	case !ValidWeight(weight):
		return ProblemWeight
	case maxChars > 0 && CountChars(body) > maxChars:
		return ProblemTooLarge
	}
	return ""
}

func (p Problem) Error() string { return string(p) }
