package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/algorithms"
	"github.com/jward/arbor/internal/hast"
)

// makeParseSrcFn creates "parse_src".
//
// parse_src(source, language) → s-expression string
func makeParseSrcFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_src: source %v", err)
		}
		lang, err := toString(args[1])
		if err != nil {
			return object.Errorf("parse_src: language %v", err)
		}

		root, err := r.parser.Parse(ctx, lang, []byte(src))
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		return object.NewString(hast.Format(r.nodes, root))
	})
}

// makeDiffSrcFn creates "diff_src", which diffs two snippets of the same
// language with the runtime's config or a named strategy.
//
// diff_src(src, dst, language[, strategy]) → {"summary": map, "actions": list}
func makeDiffSrcFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("diff_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 && len(args) != 4 {
			return object.Errorf("diff_src: expected 3 or 4 arguments, got %d", len(args))
		}
		var text [3]string
		for i := range text {
			s, err := toString(args[i])
			if err != nil {
				return object.Errorf("diff_src: argument %d %v", i+1, err)
			}
			text[i] = s
		}
		cfg := r.config
		if len(args) == 4 {
			name, err := toString(args[3])
			if err != nil {
				return object.Errorf("diff_src: strategy %v", err)
			}
			st, err := algorithms.ParseStrategy(name)
			if err != nil {
				return object.Errorf("diff_src: %v", err)
			}
			cfg = st.Config()
			cfg.Logger = r.config.Logger
		}

		src, err := r.parser.Parse(ctx, text[2], []byte(text[0]))
		if err != nil {
			return object.Errorf("diff_src: %v", err)
		}
		dst, err := r.parser.Parse(ctx, text[2], []byte(text[1]))
		if err != nil {
			return object.Errorf("diff_src: %v", err)
		}
		res, err := algorithms.Diff(ctx, r.nodes, src, dst, cfg)
		if err != nil {
			return object.Errorf("diff_src: %v", err)
		}
		return object.NewMap(map[string]object.Object{
			"summary": summaryObject(res),
			"actions": actionsObject(res.Script),
		})
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
