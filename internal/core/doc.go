// Package core provides the sanitization and detection pipeline for uploaded CSV files.
//
// This package contains all domain logic independent of any UI or transport
// layer. It is used by the HTTP server and the anomalyctl CLI without
// modification.
//
// # Pipeline
//
// A numeric run ([Pipeline.DetectNumeric]) is strictly linear:
//
//  1. [ValidateFile] checks presence, filename, extension and size before any parsing
//  2. [DecodeTable] walks [DecodeConfigs] until one decodes, then enforces row/column limits
//  3. [RenameColumns] sanitizes headers and rejects collisions
//  4. [SanitizeCells] neutralizes formula injection in string cells
//  5. [ApplyValuePolicy] turns ±Inf into missing and drops rows missing any numeric value
//  6. [PrepareFeatures] drops zero-variance columns and builds the [FeatureMatrix]
//  7. The [Scorer] labels rows; the optional [Explainer] attributes anomalous rows
//
// The categorical path ([Pipeline.DetectCategorical]) shares steps 1-4 and then
// hands the string columns to a [ReconstructionScorer], flagging rows whose
// loss exceeds a percentile of the loss distribution.
//
// # Collaborators
//
// Scorer, Explainer and ReconstructionScorer are interfaces. Optional ones are
// wrapped in a [Capability], chosen when the pipeline is built. Each can be
// put behind a circuit breaker with [GuardScorer], [GuardExplainer] and
// [GuardReconstructionScorer].
//
// # Error Handling
//
// Every stage fails with a classified [*Error]. [StatusCode] maps its [Kind]
// to an HTTP status and [MapError] to a support code:
//
//   - FILE001-FILE006: File errors (missing, name, type, empty, parse)
//   - DATA001-DATA006: Data errors (duplicates, no usable columns, all rows invalid)
//   - LIM001-LIM003: Resource limits (size, rows, columns)
//   - MOD001-MOD002: Model failures
//
// Explainer failures are never errors. The run succeeds and
// [RunMetadata].ExplainabilityError carries the diagnostic.
package core
