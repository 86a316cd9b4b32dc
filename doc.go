// Package genoconv converts dense genotype matrices from PLINK .bed
// filesets into a chunked, compressed columnar store.
//
// The converter probes a usable memory budget from scheduler or OS
// signals, then picks between a single-shot write and a row-chunked
// streaming write so that the transiently materialized slice of the
// matrix never exceeds the budget. Both write strategies produce
// logically identical output.
//
// Entry points:
//   - pkg/convert: planning, mode selection, streaming writes, verification
//   - pkg/matrix: genotype matrix sources (.bed reader, in-memory)
//   - pkg/store: the on-disk columnar container
//   - pkg/resource: memory budget probing
//   - cmd/genoconv: command-line interface
package genoconv
