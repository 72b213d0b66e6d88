package storage

import "github.com/MyraWang0406/MatrixMirix04/internal/diagnosis"

// IsStructureFailure reports whether a diagnosis failure type counts
// against the structure in review aggregates. The empty string and
// INCONCLUSIVE do not: a structure is only debited once the data was
// sufficient to blame it.
func IsStructureFailure(failureType string) bool {
	switch failureType {
	case diagnosis.FailEfficiency,
		diagnosis.FailQuality,
		diagnosis.FailHandoffMismatch,
		diagnosis.FailOSDivergence,
		diagnosis.FailMixedSignals:
		return true
	}
	return false
}

// IsValidatePass reports whether a failure type counts toward the
// validate pass rate.
func IsValidatePass(failureType string) bool {
	return failureType == "" || failureType == diagnosis.FailInconclusive
}
