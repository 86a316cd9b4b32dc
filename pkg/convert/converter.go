package convert

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/genoconv/pkg/config"
	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
	"github.com/ajitpratap0/genoconv/pkg/matrix"
	"github.com/ajitpratap0/genoconv/pkg/observability"
	"github.com/ajitpratap0/genoconv/pkg/resource"
	"github.com/ajitpratap0/genoconv/pkg/store"
)

// StoreExtension is the file extension of produced stores.
const StoreExtension = ".gcol"

// Fileset is one discovered PLINK fileset.
type Fileset struct {
	// Prefix is the path without extension, shared by .bed/.bim/.fam.
	Prefix string
	// RelDir is the fileset's directory relative to the input root,
	// mirrored in the output tree.
	RelDir string
}

// Summary reports a batch conversion.
type Summary struct {
	Converted []string
	Failed    []string
	Verified  int
}

// Converter runs batch conversions over a directory tree of PLINK
// filesets. Each fileset becomes an independent job; a failed fileset
// does not stop the batch.
type Converter struct {
	cfg    *config.ConverterConfig
	codec  store.Codec
	signal resource.Signal
	logger *zap.Logger
}

// NewConverter validates cfg and creates a converter.
func NewConverter(cfg *config.ConverterConfig) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(cfg.InputDir); err != nil || !info.IsDir() {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"input directory does not exist: %s", cfg.InputDir)
	}
	codec, err := store.ParseCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &Converter{
		cfg:    cfg,
		codec:  codec,
		signal: resource.NewEnvSignal(),
		logger: observability.NewComponentLogger("converter"),
	}, nil
}

// WithSignal replaces the resource signal, for tests.
func (c *Converter) WithSignal(sig resource.Signal) *Converter {
	c.signal = sig
	return c
}

// FindFilesets walks the input tree for .bed files with sibling .bim and
// .fam files. Files whose name contains "temporary" and incomplete
// filesets are skipped with a log line.
func (c *Converter) FindFilesets() ([]Fileset, error) {
	var filesets []Fileset

	err := filepath.WalkDir(c.cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".bed") {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), "temporary") {
			c.logger.Info("skipping temporary file", zap.String("path", path))
			return nil
		}

		prefix := strings.TrimSuffix(path, ".bed")
		for _, ext := range []string{".bim", ".fam"} {
			if _, statErr := os.Stat(prefix + ext); statErr != nil {
				c.logger.Warn("incomplete fileset, skipping",
					zap.String("bed", path),
					zap.String("missing", ext),
				)
				return nil
			}
		}

		relDir, relErr := filepath.Rel(c.cfg.InputDir, filepath.Dir(path))
		if relErr != nil {
			return relErr
		}
		filesets = append(filesets, Fileset{Prefix: prefix, RelDir: relDir})
		c.logger.Info("found complete fileset", zap.String("prefix", prefix))
		return nil
	})
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to scan input directory").
			WithDetail("input_dir", c.cfg.InputDir)
	}

	return filesets, nil
}

// ConvertAll converts every discovered fileset and returns a summary.
// Per-fileset failures are recorded and logged, not propagated.
func (c *Converter) ConvertAll() (*Summary, error) {
	filesets, err := c.FindFilesets()
	if err != nil {
		return nil, err
	}

	op := observability.NewOperationLogger(c.logger, "convert_all")
	if len(filesets) == 0 {
		op.Warn("no .bed filesets found for conversion")
		return &Summary{}, nil
	}
	op.LogStart("starting batch conversion", zap.Int("filesets", len(filesets)))

	summary := &Summary{}
	for i, fileset := range filesets {
		op.LogProgress("converting fileset", float64(i)/float64(len(filesets)),
			zap.String("prefix", fileset.Prefix),
		)

		outPath, convErr := c.convertOne(fileset)
		if convErr != nil {
			op.LogError("conversion failed", convErr, zap.String("prefix", fileset.Prefix))
			summary.Failed = append(summary.Failed, fileset.Prefix)
			continue
		}
		summary.Converted = append(summary.Converted, outPath)

		if c.cfg.Verify {
			if result := Verify(outPath); result.Valid {
				summary.Verified++
			} else {
				op.Warn("verification failed",
					zap.String("path", outPath),
					zap.String("reason", result.Reason),
				)
			}
		}
	}

	op.LogComplete("batch conversion finished",
		zap.Int("converted", len(summary.Converted)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("verified", summary.Verified),
	)
	return summary, nil
}

// ConvertOne converts the fileset at prefix (path without extension) and
// returns the output store path.
func (c *Converter) ConvertOne(prefix string) (string, error) {
	relDir, err := filepath.Rel(c.cfg.InputDir, filepath.Dir(prefix))
	if err != nil {
		return "", genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "prefix outside input directory")
	}
	return c.convertOne(Fileset{Prefix: prefix, RelDir: relDir})
}

func (c *Converter) convertOne(fileset Fileset) (string, error) {
	src, err := matrix.OpenBed(fileset.Prefix)
	if err != nil {
		return "", err
	}
	defer src.Close()

	outDir := filepath.Join(c.cfg.OutputDir, fileset.RelDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to create output directory").
			WithDetail("path", outDir)
	}
	outPath := filepath.Join(outDir, filepath.Base(fileset.Prefix)+StoreExtension)

	job := NewJob(src, outPath, JobOptions{
		TargetGB:       c.cfg.MemoryUsageGB,
		ExplicitMode:   modeFromConfig(c.cfg.Mode),
		FixedChunkSize: c.cfg.ChunkSize,
		Codec:          c.codec,
		Signal:         c.signal,
		Logger:         c.logger,
	})
	if err := job.Run(); err != nil {
		return "", err
	}
	return outPath, nil
}

// modeFromConfig maps a config mode name to an explicit Mode; auto maps
// to the empty mode, deferring to budget-based selection.
func modeFromConfig(name string) Mode {
	switch name {
	case config.ModeStandard:
		return ModeStandard
	case config.ModeChunked:
		return ModeChunked
	default:
		return ""
	}
}
