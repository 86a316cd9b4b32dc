package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/genoconv/pkg/config"
	"github.com/ajitpratap0/genoconv/pkg/convert"
	"github.com/ajitpratap0/genoconv/pkg/observability"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "genoconv",
		Short: "genoconv - memory-aware genotype matrix converter",
		Long: `genoconv converts PLINK .bed filesets into chunked, compressed columnar
stores. It probes the memory available to the process (scheduler allocation
or OS) and automatically switches between single-shot and chunked streaming
conversion so large matrices never exceed the memory budget.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("genoconv v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newConvertCommand())
	root.AddCommand(newVerifyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newConvertCommand() *cobra.Command {
	cfg := config.NewConverterConfig()
	var configFile string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert PLINK .bed filesets to columnar stores",
		Long: `Convert recursively searches the input directory for .bed filesets
(skipping temporary files and filesets missing .bim/.fam siblings) and
converts each to a compressed columnar store, mirroring the directory
structure under the output directory.

Examples:
  # Auto mode: pick standard or chunked processing from available memory
  genoconv convert --input-dir data/simulations --output-dir data/stores

  # Force chunked processing with a 4 GB memory target
  genoconv convert -i data -o out --mode chunked --memory-usage 4.0

  # Fix the chunk size explicitly
  genoconv convert -i data --mode chunked --chunk-size 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := config.Load(configFile, cfg); err != nil {
					return err
				}
			}
			return runConvert(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.InputDir, "input-dir", "i", "", "Input directory to search for .bed filesets (required)")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", "", "Output directory for stores (default: input directory)")
	cmd.Flags().StringVar(&cfg.Mode, "mode", cfg.Mode, "Processing mode: auto, standard, or chunked")
	cmd.Flags().Float64Var(&cfg.MemoryUsageGB, "memory-usage", cfg.MemoryUsageGB, "Target memory in GB for chunk sizing")
	cmd.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Samples per chunk (0 = computed from memory target)")
	cmd.Flags().StringVar(&cfg.Compression, "compression", cfg.Compression, "Store compression: zstd, gzip, lz4, or none")
	cmd.Flags().BoolVar(&cfg.Verify, "verify", cfg.Verify, "Verify each produced store structurally")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML configuration file (flags override)")
	_ = cmd.MarkFlagRequired("input-dir")

	return cmd
}

func runConvert(cfg *config.ConverterConfig) error {
	logCfg := observability.DefaultLoggingConfig()
	logCfg.Level = observability.ParseLevel(cfg.LogLevel)
	if err := observability.InitLogging(logCfg); err != nil {
		return err
	}
	logger := observability.GetLogger()

	converter, err := convert.NewConverter(cfg)
	if err != nil {
		return err
	}

	summary, err := converter.ConvertAll()
	if err != nil {
		return err
	}

	logger.Info("conversion summary",
		zap.Int("converted", len(summary.Converted)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("verified", summary.Verified),
	)
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d fileset(s) failed to convert", len(summary.Failed))
	}
	return nil
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <store>...",
		Short: "Structurally verify columnar stores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, path := range args {
				result := convert.Verify(path)
				if result.Valid {
					fmt.Printf("%s: valid\n", path)
				} else {
					fmt.Printf("%s: INVALID: %s\n", path, result.Reason)
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d store(s) invalid", invalid, len(args))
			}
			return nil
		},
	}
}
