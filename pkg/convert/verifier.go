package convert

import (
	"fmt"

	"github.com/ajitpratap0/genoconv/pkg/metrics"
	"github.com/ajitpratap0/genoconv/pkg/store"
)

// requiredDatasets are the dataset keys a well-formed store must hold.
var requiredDatasets = []string{DatasetGenotypes}

// VerificationResult is the outcome of a structural check.
type VerificationResult struct {
	Valid  bool
	Reason string
}

// Verify opens the store at path read-only and checks that every required
// dataset key exists. The check is structural only: it proves the store
// was finalized and has the expected shape of contents, not that the
// numeric data matches any reference.
func Verify(path string) VerificationResult {
	reader, err := store.Open(path)
	if err != nil {
		metrics.VerificationFailures.Inc()
		return VerificationResult{
			Valid:  false,
			Reason: fmt.Sprintf("store could not be opened: %v", err),
		}
	}
	defer reader.Close()

	for _, name := range requiredDatasets {
		if !reader.HasDataset(name) {
			metrics.VerificationFailures.Inc()
			return VerificationResult{
				Valid:  false,
				Reason: fmt.Sprintf("missing dataset %q", name),
			}
		}
	}

	return VerificationResult{Valid: true}
}
