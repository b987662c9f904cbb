//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/pipeline"
)

func main() {
	js.Global().Set("analyzeJumps", js.FuncOf(analyzeJumps))
	select {}
}

// analyzeJumps expects an array of {name, velocity, force} objects, where
// velocity and force are Uint8Array CSV exports, and an options object.
func analyzeJumps(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return map[string]any{
			"ok":    false,
			"error": "expected arguments: pairs(Array<{name, velocity, force}>), options(object)",
		}
	}
	pairsArg := args[0]
	optsArg := args[1]
	if pairsArg.IsUndefined() || pairsArg.IsNull() || pairsArg.Get("length").Int() == 0 {
		return map[string]any{
			"ok":    false,
			"error": "at least one jump pair is required",
		}
	}

	pairs := make([]pipeline.BytesPair, 0, pairsArg.Get("length").Int())
	for i := 0; i < pairsArg.Get("length").Int(); i++ {
		p := pairsArg.Index(i)
		velocity, err := getBytes(p, "velocity")
		if err != nil {
			return map[string]any{"ok": false, "error": fmt.Sprintf("pair %d: %v", i, err)}
		}
		force, err := getBytes(p, "force")
		if err != nil {
			return map[string]any{"ok": false, "error": fmt.Sprintf("pair %d: %v", i, err)}
		}
		pairs = append(pairs, pipeline.BytesPair{
			Name:     getString(p, "name", fmt.Sprintf("jump_%d.csv", i+1)),
			Velocity: velocity,
			Force:    force,
		})
	}

	engine := cmjstats.DefaultConfig()
	engine.Segment.Takeoff = cmjstats.TakeoffRule(getString(optsArg, "takeoff_rule", string(engine.Segment.Takeoff)))
	if si := getFloat(optsArg, "sample_interval"); si > 0 {
		engine.SampleInterval = si
	}

	result, err := pipeline.RunBytes(context.Background(), pipeline.BytesOptions{
		Pairs:  pairs,
		Format: getString(optsArg, "format", "csv"),
		Engine: engine,
	})
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": err.Error(),
		}
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("create zip: %v", err),
		}
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":       true,
		"run_id":   result.RunID,
		"zip":      payload,
		"summary":  string(result.Files[pipeline.SummaryName]),
		"warnings": stringsToAny(result.Warnings),
		"files":    stringsToAny(fileNames),
	}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getBytes(v js.Value, key string) ([]byte, error) {
	arr := v.Get(key)
	if arr.IsUndefined() || arr.IsNull() || arr.Get("length").Int() == 0 {
		return nil, fmt.Errorf("%s bytes are required", key)
	}
	out := make([]byte, arr.Get("length").Int())
	if n := js.CopyBytesToGo(out, arr); n == 0 {
		return nil, fmt.Errorf("failed to read %s bytes from JS input", key)
	}
	return out, nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getFloat(v js.Value, key string) float64 {
	if v.IsUndefined() || v.IsNull() {
		return 0
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return 0
	}
	return out.Float()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
