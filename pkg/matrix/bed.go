package matrix

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// PLINK .bed binary layout: a 3-byte header (two magic bytes and a mode
// byte), then one block per variant of ceil(nSamples/4) bytes, each byte
// packing four samples at 2 bits apiece. Dimensions come from the sibling
// .fam (samples) and .bim (variants) text files.
const (
	bedMagic1 = 0x6c
	bedMagic2 = 0x1b
	// bedModeVariantMajor marks the variant-major (SNP-major) layout,
	// the only layout modern PLINK writes.
	bedModeVariantMajor = 0x01

	bedHeaderSize = 3
)

// bimFieldCount is the number of whitespace-separated columns a .bim row
// carries: chromosome, variant ID, morgans, coordinate, allele 1, allele 2.
const bimFieldCount = 6

// Genotype codes in the 2-bit encoding, per byte from the low bits up.
const (
	genoHomRef  = 0b00 // homozygous first allele -> 0
	genoMissing = 0b01 // missing -> NaN
	genoHet     = 0b10 // heterozygous -> 1
	genoHomAlt  = 0b11 // homozygous second allele -> 2
)

// BedSource reads a PLINK .bed/.bim/.fam fileset as a genotype matrix.
// The variant-major layout stores each variant's samples contiguously, so
// a sample row range [start, end) needs only the byte span covering those
// samples from each variant block; the rest of the file is never read.
type BedSource struct {
	file      *os.File
	nSamples  int
	nVariants int
	// bytesPerVariant is ceil(nSamples/4), the size of one variant block.
	bytesPerVariant int
}

// OpenBed opens the fileset identified by prefix (path without
// extension). The .bim and .fam siblings must exist; their line counts
// give the matrix dimensions, validated against the .bed file size.
func OpenBed(prefix string) (*BedSource, error) {
	bedPath := prefix + ".bed"
	bimPath := prefix + ".bim"
	famPath := prefix + ".fam"

	nSamples, err := countLines(famPath)
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to read .fam file").
			WithDetail("path", famPath)
	}
	nVariants, err := countBIMLines(bimPath)
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to read .bim file").
			WithDetail("path", bimPath)
	}
	if nSamples <= 0 || nVariants <= 0 {
		return nil, genoerrors.Newf(genoerrors.ErrorTypeData,
			"empty fileset: %d samples, %d variants", nSamples, nVariants)
	}

	file, err := os.Open(bedPath) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to open .bed file").
			WithDetail("path", bedPath)
	}

	src := &BedSource{
		file:            file,
		nSamples:        nSamples,
		nVariants:       nVariants,
		bytesPerVariant: (nSamples + 3) / 4,
	}
	if err := src.validateHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return src, nil
}

func (s *BedSource) validateHeader() error {
	var header [bedHeaderSize]byte
	if _, err := io.ReadFull(s.file, header[:]); err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeData, "failed to read .bed header")
	}
	if header[0] != bedMagic1 || header[1] != bedMagic2 {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			"bad .bed magic bytes 0x%02x 0x%02x", header[0], header[1])
	}
	if header[2] != bedModeVariantMajor {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			"unsupported .bed mode 0x%02x, only variant-major is supported", header[2])
	}

	info, err := s.file.Stat()
	if err != nil {
		return genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to stat .bed file")
	}
	expected := int64(bedHeaderSize) + int64(s.nVariants)*int64(s.bytesPerVariant)
	if info.Size() != expected {
		return genoerrors.Newf(genoerrors.ErrorTypeData,
			".bed size %d does not match %d samples x %d variants (expected %d)",
			info.Size(), s.nSamples, s.nVariants, expected)
	}
	return nil
}

// NSamples returns the number of samples (rows).
func (s *BedSource) NSamples() int { return s.nSamples }

// NVariants returns the number of variants (columns).
func (s *BedSource) NVariants() int { return s.nVariants }

// ReadRows decodes samples [start, end) across all variants into a
// row-major float32 slice. Genotypes are allele counts 0, 1, 2; missing
// calls decode to NaN.
func (s *BedSource) ReadRows(start, end int) ([]float32, error) {
	if err := checkRange(start, end, s.nSamples); err != nil {
		return nil, err
	}

	nRows := end - start
	out := make([]float32, nRows*s.nVariants)

	// Byte span within each variant block covering samples [start, end).
	firstByte := start / 4
	lastByte := (end - 1) / 4
	span := lastByte - firstByte + 1
	buf := make([]byte, span)

	for j := 0; j < s.nVariants; j++ {
		offset := int64(bedHeaderSize) + int64(j)*int64(s.bytesPerVariant) + int64(firstByte)
		if _, err := s.file.ReadAt(buf, offset); err != nil {
			return nil, genoerrors.Wrap(err, genoerrors.ErrorTypeFile, "failed to read variant block").
				WithDetail("variant", j).
				WithDetail("offset", offset)
		}

		for i := start; i < end; i++ {
			b := buf[i/4-firstByte]
			code := (b >> uint((i%4)*2)) & 0b11
			out[(i-start)*s.nVariants+j] = decodeGenotype(code)
		}
	}

	return out, nil
}

// Close releases the underlying .bed file handle.
func (s *BedSource) Close() error {
	return s.file.Close()
}

func decodeGenotype(code byte) float32 {
	switch code {
	case genoHomRef:
		return 0
	case genoHet:
		return 1
	case genoHomAlt:
		return 2
	default: // genoMissing
		return float32(math.NaN())
	}
}

// countLines counts non-empty lines in a text file.
func countLines(path string) (int, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return count, nil
}

// countBIMLines counts variant rows in a .bim file, validating the
// column count of each row.
func countBIMLines(path string) (int, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if fields := strings.Fields(line); len(fields) != bimFieldCount {
			return 0, genoerrors.Newf(genoerrors.ErrorTypeData,
				".bim row %d has %d fields, expected %d", count+1, len(fields), bimFieldCount)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return count, nil
}
