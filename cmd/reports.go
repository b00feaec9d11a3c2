package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/ssimcompare/internal/store"
	"github.com/spf13/cobra"
)

var (
	reportsDataDir string
	keepLast       int
	olderThanDays  int
	forceClean     bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved comparison reports",
	Long:  `List, inspect and clean comparison reports saved with compare --save or by the server.`,
}

var listReportsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved reports",
	Long:  `Display all reports with ID, timestamp, mode, score and size on disk.`,
	RunE:  runListReports,
}

var showReportCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowReport,
}

var cleanReportsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old reports",
	Long: `Delete old reports based on retention policy.
The --keep-last newest reports are always kept; with --older-than only
reports older than N days are removed.`,
	RunE: runCleanReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)

	reportsCmd.AddCommand(listReportsCmd)
	reportsCmd.AddCommand(showReportCmd)
	reportsCmd.AddCommand(cleanReportsCmd)

	reportsCmd.PersistentFlags().StringVar(&reportsDataDir, "data-dir", "./data", "Base directory for report storage")

	cleanReportsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Always keep the newest N reports")
	cleanReportsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete reports older than N days (0 = no age limit)")
	cleanReportsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListReports(cmd *cobra.Command, args []string) error {
	reportStore, err := store.NewFSStore(reportsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	reports, err := reportStore.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println("No reports found.")
		return nil
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tMODE\tSIZE\tSCORE\tDISK")
	fmt.Fprintln(w, "--\t---------\t----\t----\t-----\t----")

	for _, r := range reports {
		size, err := getDirSize(filepath.Join(reportsDataDir, "reports", r.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%.6f\t%s\n",
			shortID(r.ID),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			modeLabelShort(r),
			r.Width, r.Height,
			r.Score,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal reports: %d\n", len(reports))
	return nil
}

func runShowReport(cmd *cobra.Command, args []string) error {
	reportStore, err := store.NewFSStore(reportsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	r, err := reportStore.LoadReport(args[0])
	if err != nil {
		return err
	}

	fmt.Println(renderField("ID", r.ID))
	fmt.Println(renderField("TIME", r.Timestamp.Format(time.RFC3339)))
	fmt.Println(renderField("X", r.XPath))
	fmt.Println(renderField("Y", r.YPath))
	fmt.Println(renderField("MODE", modeLabelShort(*r)))
	fmt.Println(renderField("SIZE", fmt.Sprintf("%dx%d (%s)", r.Width, r.Height, r.Filter)))
	fmt.Println(renderField("SSIM", "") + renderScore(r.Score))
	fmt.Println(renderField("MSE", fmt.Sprintf("%.4f", r.MSE)))
	fmt.Println(renderField("PSNR", formatPSNR(r.PSNR)))

	entries, err := reportStore.ReadWindows(r.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read window scores: %w", err)
	}

	if lo, hi, ok := scoreRange(entries); ok {
		fmt.Println(renderField("WINDOWS", fmt.Sprintf("%d, min %.6f at (%d,%d), max %.6f at (%d,%d)",
			len(entries), lo.Score, lo.X, lo.Y, hi.Score, hi.X, hi.Y)))
	}
	return nil
}

func runCleanReports(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	reportStore, err := store.NewFSStore(reportsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	reports, err := reportStore.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println("No reports to clean.")
		return nil
	}

	toDelete := store.SelectForDeletion(reports, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Println("No reports match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d report(s) to delete:\n", len(toDelete))
	for _, r := range toDelete {
		fmt.Printf("  - %s (%s, score %.6f, %s)\n",
			shortID(r.ID),
			modeLabelShort(r),
			r.Score,
			r.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, r := range toDelete {
		if err := reportStore.DeleteReport(r.ID); err != nil {
			slog.Error("Failed to delete report", "id", r.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted report", "id", r.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d report(s), %d failed.\n", deleted, failed)
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

func modeLabelShort(r store.Report) string {
	if r.Mode == "local" {
		return fmt.Sprintf("local(%d)", r.WindowSize)
	}
	return r.Mode
}

// scoreRange returns the lowest and highest scoring windows, skipping NaN.
func scoreRange(entries []store.WindowEntry) (lo, hi store.WindowEntry, ok bool) {
	for _, e := range entries {
		if math.IsNaN(e.Score) {
			continue
		}
		if !ok {
			lo, hi, ok = e, e, true
			continue
		}
		if e.Score < lo.Score {
			lo = e
		}
		if e.Score > hi.Score {
			hi = e
		}
	}
	return lo, hi, ok
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
