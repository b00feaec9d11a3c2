package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/cwbudde/ssimcompare/internal/codec"
	"github.com/cwbudde/ssimcompare/internal/server"
	"github.com/cwbudde/ssimcompare/internal/ssim"
	"github.com/cwbudde/ssimcompare/internal/store"
	"github.com/spf13/cobra"
)

var (
	xPath          string
	yPath          string
	compareMode    = modeValue("global")
	windowSize     int
	targetWidth    int
	targetHeight   int
	filterName     string
	workers        int
	saveReport     bool
	compareDataDir string
	mapPath        string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two images",
	Long: `Decodes both images to a common size and prints their structural
similarity score. Without --width/--height the native size of --x is used.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&xPath, "x", "", "First image path (required)")
	compareCmd.Flags().StringVar(&yPath, "y", "", "Second image path (required)")
	compareCmd.Flags().Var(&compareMode, "mode", "Comparison mode: global, local")
	compareCmd.Flags().IntVar(&windowSize, "window", 8, "Window size for local mode")
	compareCmd.Flags().IntVar(&targetWidth, "width", 0, "Target width (0 = native width of --x)")
	compareCmd.Flags().IntVar(&targetHeight, "height", 0, "Target height (0 = native height of --x)")
	compareCmd.Flags().StringVar(&filterName, "filter", string(codec.FilterGaussian), "Resampling filter: gaussian, catmullrom, bilinear, nearest")
	compareCmd.Flags().IntVar(&workers, "workers", 0, "Parallel window workers (0 = GOMAXPROCS)")
	compareCmd.Flags().BoolVar(&saveReport, "save", false, "Save the report to --data-dir")
	compareCmd.Flags().StringVar(&compareDataDir, "data-dir", "./data", "Base directory for report storage")
	compareCmd.Flags().StringVar(&mapPath, "map", "", "Write a per-window score map PNG (local mode)")

	compareCmd.MarkFlagRequired("x")
	compareCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if mapPath != "" && compareMode.String() != "local" {
		return fmt.Errorf("--map needs per-window scores; use --mode local")
	}

	req := server.CompareRequest{
		XPath:  xPath,
		YPath:  yPath,
		Mode:   compareMode.String(),
		Width:  targetWidth,
		Height: targetHeight,
		Filter: filterName,
	}
	if req.Mode == "local" {
		req.WindowSize = windowSize
	}

	slog.Debug("Starting comparison", "x", xPath, "y", yPath, "mode", req.Mode, "window", req.WindowSize)

	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	comparator := ssim.NewComparator(ssim.Options{Workers: workers})
	outcome, err := server.RunComparison(ctx, req, comparator)
	if err != nil {
		return err
	}
	report := outcome.Report

	if saveReport {
		st, err := store.NewFSStore(compareDataDir)
		if err != nil {
			return fmt.Errorf("failed to create report store: %w", err)
		}
		if err := server.SaveOutcome(st, outcome); err != nil {
			return err
		}
		slog.Info("Saved report", "id", report.ID, "data_dir", compareDataDir)
	}

	if mapPath != "" {
		if err := writeScoreMap(mapPath, outcome.Windows); err != nil {
			return err
		}
	}

	fmt.Println(renderField("SSIM", "") + renderScore(report.Score))
	fmt.Println(renderField("MODE", fmt.Sprintf("%s %dx%d", modeLabel(report), report.Width, report.Height)))
	fmt.Println(renderField("MSE", fmt.Sprintf("%.4f", report.MSE)))
	fmt.Println(renderField("PSNR", formatPSNR(report.PSNR)))
	if saveReport {
		fmt.Println(renderField("REPORT", report.ID))
	}
	return nil
}

func modeLabel(r *store.Report) string {
	if r.Mode == "local" {
		return fmt.Sprintf("local(%d), %d windows,", r.WindowSize, r.Windows)
	}
	return r.Mode
}

func writeScoreMap(path string, windows []ssim.WindowScore) error {
	entries := make([]store.WindowEntry, len(windows))
	for i, w := range windows {
		entries[i] = store.WindowEntry{X: w.X, Y: w.Y, Score: w.Score}
	}

	img := server.ScoreMap(entries)
	if img == nil {
		return fmt.Errorf("no window scores to map")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create map file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode map: %w", err)
	}

	slog.Info("Wrote score map", "path", path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}
