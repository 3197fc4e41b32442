package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ============================================================
// Local Converter Tools
// ============================================================

// DXF2DWGTool — стратегия через LibreDWG dxf2dwg: один входной файл,
// один выходной. Временные файлы удаляются при любом исходе.
type DXF2DWGTool struct {
	Command string
}

func NewDXF2DWGTool() *DXF2DWGTool {
	return &DXF2DWGTool{Command: "dxf2dwg"}
}

func (t *DXF2DWGTool) Name() string {
	return "dxf2dwg"
}

func (t *DXF2DWGTool) Available() bool {
	_, err := exec.LookPath(t.Command)
	return err == nil
}

func (t *DXF2DWGTool) Convert(ctx context.Context, dxf []byte) ([]byte, error) {
	in, err := os.CreateTemp("", "plan-*.dxf")
	if err != nil {
		return nil, fmt.Errorf("create temp dxf: %w", err)
	}
	inPath := in.Name()
	outPath := strings.TrimSuffix(inPath, ".dxf") + ".dwg"
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	if _, err := in.Write(dxf); err != nil {
		in.Close()
		return nil, fmt.Errorf("write temp dxf: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close temp dxf: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.Command, "-y", "-o", outPath, inPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("dxf2dwg: %w: %s", err, firstLine(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read dwg output: %w", err)
	}
	return data, nil
}

// ODATool — стратегия через ODA File Converter. Утилита работает
// с каталогами (вход/выход), не с одиночными файлами; каталоги
// удаляются при любом исходе.
type ODATool struct {
	Command string
}

func NewODATool() *ODATool {
	return &ODATool{Command: "ODAFileConverter"}
}

func (t *ODATool) Name() string {
	return "oda-file-converter"
}

func (t *ODATool) Available() bool {
	_, err := exec.LookPath(t.Command)
	return err == nil
}

func (t *ODATool) Convert(ctx context.Context, dxf []byte) ([]byte, error) {
	inDir, err := os.MkdirTemp("", "oda-in-")
	if err != nil {
		return nil, fmt.Errorf("create input dir: %w", err)
	}
	defer os.RemoveAll(inDir)

	outDir, err := os.MkdirTemp("", "oda-out-")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := os.WriteFile(filepath.Join(inDir, "plan.dxf"), dxf, 0o644); err != nil {
		return nil, fmt.Errorf("write input dxf: %w", err)
	}

	// фирменный синтаксис: вход, выход, версия, формат,
	// рекурсия (0), аудит (1), фильтр
	cmd := exec.CommandContext(ctx, t.Command,
		inDir, outDir, "ACAD2018", "DWG", "0", "1", "*.DXF")
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("oda converter: %w: %s", err, firstLine(output))
	}

	data, err := os.ReadFile(filepath.Join(outDir, "plan.dwg"))
	if err != nil {
		return nil, fmt.Errorf("read dwg output: %w", err)
	}
	return data, nil
}

func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
