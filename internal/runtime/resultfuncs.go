package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/actions"
	"github.com/jward/arbor/internal/algorithms"
	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/internal/treepath"
)

// ResultGlobals exposes one diff result to a script:
//
//	summary   map of strategy, sizes, counts and timings
//	actions   list of action maps in script order
//	mappings  list of {"src": path, "dst": path, "type": type}
//	src_text(path), dst_text(path)  flattened labels below a node
func ResultGlobals(acc hast.Accessor, res *algorithms.Result) map[string]any {
	return map[string]any{
		"summary":  summaryObject(res),
		"actions":  actionsObject(res.Script),
		"mappings": mappingsObject(acc, res),
		"src_text": makeNodeTextFn("src_text", acc, res.Src),
		"dst_text": makeNodeTextFn("dst_text", acc, res.Dst),
	}
}

func summaryObject(res *algorithms.Result) object.Object {
	counts := res.Counts()
	phases := make(map[string]object.Object, len(algorithms.Phases()))
	for _, ph := range algorithms.Phases() {
		phases[ph.String()] = millis(res.Timings[ph])
	}
	return object.NewMap(map[string]object.Object{
		"strategy": object.NewString(res.Strategy.String()),
		"src_size": object.NewInt(int64(res.Src.Len())),
		"dst_size": object.NewInt(int64(res.Dst.Len())),
		"mappings": object.NewInt(int64(res.Mappings.Len())),
		"inserts":  object.NewInt(int64(counts[actions.Insert])),
		"deletes":  object.NewInt(int64(counts[actions.Delete])),
		"updates":  object.NewInt(int64(counts[actions.Update])),
		"moves":    object.NewInt(int64(counts[actions.Move])),
		"total_ms": millis(res.Total),
		"phases":   object.NewMap(phases),
	})
}

func millis(d time.Duration) object.Object {
	return object.NewFloat(float64(d) / float64(time.Millisecond))
}

func actionsObject(script []actions.Action) object.Object {
	items := make([]object.Object, 0, len(script))
	for _, a := range script {
		items = append(items, actionObject(a))
	}
	return object.NewList(items)
}

func actionObject(a actions.Action) object.Object {
	m := map[string]object.Object{
		"kind":   object.NewString(a.Kind.String()),
		"path":   object.NewString(a.Path.String()),
		"origin": object.NewString(a.Origin.String()),
		"text":   object.NewString(a.String()),
	}
	switch a.Kind {
	case actions.Insert, actions.Move:
		m["parent"] = object.NewString(a.Parent.String())
		m["index"] = object.NewInt(int64(a.Index))
	}
	if a.Type != "" {
		m["type"] = object.NewString(a.Type)
	}
	if a.HasLabel {
		m["label"] = object.NewString(a.Label)
	}
	if a.Kind == actions.Update {
		m["old_type"] = object.NewString(a.OldType)
		m["old_label"] = object.NewString(a.OldLabel)
	}
	return object.NewMap(m)
}

func mappingsObject(acc hast.Accessor, res *algorithms.Result) object.Object {
	items := make([]object.Object, 0, res.Mappings.Len())
	for s, d := range res.Mappings.All() {
		items = append(items, object.NewMap(map[string]object.Object{
			"src":  object.NewString(decompressed.Path(res.Src, s).String()),
			"dst":  object.NewString(decompressed.Path(res.Dst, d).String()),
			"type": object.NewString(acc.Node(res.Src.Original(s)).Type),
		}))
	}
	return object.NewList(items)
}

// makeNodeTextFn resolves a dotted path in one side of the diff.
//
// src_text(path) → string
func makeNodeTextFn(name string, acc hast.Accessor, a decompressed.Arena) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		p, err := treepath.Parse(s)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		x := a.Root()
		for i := range p.Decode() {
			kids := a.Children(x)
			if int(i) >= len(kids) {
				return object.Errorf("%s: path %q leaves the tree", name, s)
			}
			x = kids[i]
		}
		return object.NewString(hast.Text(acc, a.Original(x)))
	})
}

// --- Store query functions ---

func runObject(r *store.DiffRun) object.Object {
	m := map[string]object.Object{
		"id":         object.NewString(r.ID),
		"strategy":   object.NewString(r.Strategy),
		"src_size":   object.NewInt(int64(r.SrcSize)),
		"dst_size":   object.NewInt(int64(r.DstSize)),
		"mappings":   object.NewInt(int64(r.Mappings)),
		"inserts":    object.NewInt(int64(r.Inserts)),
		"deletes":    object.NewInt(int64(r.Deletes)),
		"updates":    object.NewInt(int64(r.Updates)),
		"moves":      object.NewInt(int64(r.Moves)),
		"total_ms":   millis(r.Total),
		"created_at": object.NewString(r.CreatedAt.Format(time.RFC3339)),
	}
	if r.SrcVersionID != nil {
		m["src_version_id"] = object.NewInt(*r.SrcVersionID)
	}
	if r.DstVersionID != nil {
		m["dst_version_id"] = object.NewInt(*r.DstVersionID)
	}
	return object.NewMap(m)
}

// runs([limit]) → list of run maps, newest first
func makeRunsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("runs", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("runs: expected at most 1 argument, got %d", len(args))
		}
		limit := int64(0)
		if len(args) == 1 {
			var err error
			if limit, err = toInt64(args[0]); err != nil {
				return object.Errorf("runs: limit %v", err)
			}
		}
		runs, err := s.Runs(int(limit))
		if err != nil {
			return object.Errorf("runs: %v", err)
		}
		items := make([]object.Object, 0, len(runs))
		for _, r := range runs {
			items = append(items, runObject(r))
		}
		return object.NewList(items)
	})
}

// run(id) → run map or nil
func makeRunFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("run", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("run", 1, len(args))
		}
		id, err := toString(args[0])
		if err != nil {
			return object.Errorf("run: %v", err)
		}
		r, err := s.Run(id)
		if errors.Is(err, store.ErrRunNotFound) {
			return object.Nil
		}
		if err != nil {
			return object.Errorf("run: %v", err)
		}
		return runObject(r)
	})
}

// run_actions(id) → list of action maps
func makeRunActionsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("run_actions", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("run_actions", 1, len(args))
		}
		id, err := toString(args[0])
		if err != nil {
			return object.Errorf("run_actions: %v", err)
		}
		script, err := s.RunActions(id)
		if err != nil {
			return object.Errorf("run_actions: %v", err)
		}
		return actionsObject(script)
	})
}

func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	case time.Time:
		return object.NewString(val.Format(time.RFC3339))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
