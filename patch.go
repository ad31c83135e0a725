package arbor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/jward/arbor/internal/parse"
)

// ErrPatchDoesNotApply is returned when a hunk's context or removed lines
// do not match the file on disk.
var ErrPatchDoesNotApply = errors.New("patch does not apply")

const devNull = "/dev/null"

// DiffPatch applies a unified diff to the files under root in memory and
// structurally diffs each file before and after. Files in languages arbor
// cannot parse are skipped. Both states are recorded as versions tagged
// "pre" and "post".
func (e *Engine) DiffPatch(ctx context.Context, root string, patch []byte) ([]*Report, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("arbor: parse patch: %w", err)
	}

	var reports []*Report
	for _, fd := range fileDiffs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := patchPath(fd)
		lang, err := e.parser.Language(path)
		if errors.Is(err, parse.ErrUnsupportedLanguage) {
			e.logger.Debug("skipping patched file", "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("arbor: %w", err)
		}

		var orig []byte
		if fd.OrigName != devNull {
			if orig, err = os.ReadFile(filepath.Join(root, path)); err != nil {
				return nil, fmt.Errorf("arbor: read file: %w", err)
			}
		}
		patched, err := applyFileDiff(orig, fd)
		if err != nil {
			return nil, fmt.Errorf("arbor: %s: %w", path, err)
		}

		in := &pairInput{
			lang: lang,
			src:  side{path: path, src: orig, tag: "pre"},
			dst:  side{path: path, src: patched, tag: "post"},
		}
		if err := e.parsePair(ctx, in); err != nil {
			return nil, err
		}
		rep, err := e.diff(ctx, in.src.root, in.dst.root)
		if err != nil {
			return nil, err
		}
		rep.SrcPath, rep.DstPath, rep.Language = path, path, lang
		if err := e.record(rep, in); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// patchPath is the repository-relative path a file diff touches, with the
// git a/ and b/ prefixes stripped.
func patchPath(fd *diff.FileDiff) string {
	p := fd.NewName
	if p == "" || p == devNull {
		p = fd.OrigName
	}
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}

// applyFileDiff returns orig with the hunks of fd applied. Every context
// and removed line must match.
func applyFileDiff(orig []byte, fd *diff.FileDiff) ([]byte, error) {
	if fd.NewName == devNull {
		return nil, nil
	}

	lines := splitLines(string(orig))
	out := make([]string, 0, len(lines))
	idx := 0
	for i, h := range fd.Hunks {
		start := int(h.OrigStartLine) - 1
		if h.OrigLines == 0 {
			// pure insertion after line OrigStartLine
			start = int(h.OrigStartLine)
		}
		if start < idx || start > len(lines) {
			return nil, fmt.Errorf("%w: hunk %d starts at line %d", ErrPatchDoesNotApply, i+1, h.OrigStartLine)
		}
		out = append(out, lines[idx:start]...)
		idx = start

		for _, l := range splitLines(string(h.Body)) {
			op, text := byte(' '), ""
			if l != "" {
				op, text = l[0], l[1:]
			}
			switch op {
			case '\\':
				continue
			case '+':
				out = append(out, text)
			case '-', ' ':
				if idx >= len(lines) || lines[idx] != text {
					return nil, fmt.Errorf("%w: hunk %d: line %d does not match", ErrPatchDoesNotApply, i+1, idx+1)
				}
				if op == ' ' {
					out = append(out, text)
				}
				idx++
			default:
				return nil, fmt.Errorf("%w: hunk %d: malformed line %q", ErrPatchDoesNotApply, i+1, l)
			}
		}
	}
	out = append(out, lines[idx:]...)
	if len(out) == 0 {
		return nil, nil
	}
	return []byte(strings.Join(out, "\n") + "\n"), nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
