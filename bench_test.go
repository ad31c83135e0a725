package arbor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// benchGoSource generates a Go file with n small functions. Functions whose
// index is divisible by renameEvery get a suffix, and the last two swap
// places, so two generations differ by renames and one move.
func benchGoSource(n, renameEvery int, mutate bool) string {
	var sb strings.Builder
	sb.WriteString("package bench\n\nimport \"fmt\"\n\n")
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if mutate && n > 1 {
		order[n-1], order[n-2] = order[n-2], order[n-1]
	}
	for _, i := range order {
		name := fmt.Sprintf("step%d", i)
		if mutate && renameEvery > 0 && i%renameEvery == 0 {
			name += "V2"
		}
		fmt.Fprintf(&sb, "// %s handles case %d.\nfunc %s(xs []int) (int, error) {\n", name, i, name)
		fmt.Fprintf(&sb, "\ttotal := 0\n\tfor _, x := range xs {\n\t\tif x < 0 {\n\t\t\treturn 0, fmt.Errorf(\"negative input %%d\", x)\n\t\t}\n\t\ttotal += x * %d\n\t}\n\treturn total, nil\n}\n\n", i+1)
	}
	return sb.String()
}

func setupBenchEngine(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	e, err := New(filepath.Join(b.TempDir(), "bench.db"), opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

// BenchmarkDiffSources measures parse, diff and recording of a ~1500-line
// Go file for each strategy.
func BenchmarkDiffSources(b *testing.B) {
	src := []byte(benchGoSource(120, 7, false))
	dst := []byte(benchGoSource(120, 7, true))
	ctx := context.Background()

	for _, s := range Strategies() {
		b.Run(s.String(), func(b *testing.B) {
			e := setupBenchEngine(b, WithStrategy(s))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.DiffSources(ctx, "go", src, dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDiffPairs measures a batch of file pairs diffed in parallel and
// recorded with their versions.
func BenchmarkDiffPairs(b *testing.B) {
	dir := b.TempDir()
	var pairs []Pair
	for i := range 16 {
		src := filepath.Join(dir, fmt.Sprintf("v1/f%d.go", i))
		dst := filepath.Join(dir, fmt.Sprintf("v2/f%d.go", i))
		for path, content := range map[string]string{
			src: benchGoSource(20+i, 3, false),
			dst: benchGoSource(20+i, 3, true),
		} {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				b.Fatal(err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				b.Fatal(err)
			}
		}
		pairs = append(pairs, Pair{Src: src, Dst: dst})
	}

	e := setupBenchEngine(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.DiffPairs(ctx, pairs); err != nil {
			b.Fatal(err)
		}
	}
}

func TestBenchGoSource_Differs(t *testing.T) {
	e := newTestEngine(t)
	rep, err := e.DiffSources(context.Background(), "go",
		[]byte(benchGoSource(10, 3, false)), []byte(benchGoSource(10, 3, true)))
	if err != nil {
		t.Fatal(err)
	}
	if !hasRename(rep.Script(), "step3", "step3V2") {
		t.Fatalf("expected step3 rename in %v", rep.Script())
	}
	assertReplays(t, e, rep)
}
