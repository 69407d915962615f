package settings

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders a line diff between two encoded blocks, prefixing removed
// lines with "-", added lines with "+" and unchanged lines with a space.
// It returns an empty string when both sides are equal.
func Diff(before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// DiffBlocks encodes both blocks and diffs them.
func DiffBlocks(before, after Block) (string, error) {
	a, err := Encode(before)
	if err != nil {
		return "", err
	}
	b, err := Encode(after)
	if err != nil {
		return "", err
	}
	return Diff(a, b), nil
}
