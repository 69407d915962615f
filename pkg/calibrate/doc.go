// Package calibrate drives the measure/adjust loop that tunes every variant
// until it renders as one page with the expected bottom whitespace.
//
// # Iterations
//
// Each iteration processes all active variants as one batch:
//
//  1. Build the artifacts (reference and targets) through a [build.Builder].
//  2. Measure the reference variant; its whitespace becomes this iteration's
//     caps.
//  3. Measure every target in sorted id order and assess it against the
//     baseline ratio and the caps.
//  4. Classify: pass, adjustable, or bound (pinned at the density floor or
//     ceiling while the error still points past it).
//  5. Register the observation in the variant's solver state.
//  6. Stop with success when everything passes.
//  7. Otherwise compute proposals for adjustable variants and persist them in
//     one whole-block update. No change at all is a stall.
//
// The loop also stops when only bound variants remain failing or when the
// iteration budget runs out.
//
// # Rollback
//
// The whole loop runs inside a settings transaction. Any failure, including
// cancellation observed at an iteration boundary, restores the pre-run bytes
// of the settings block. With Options.KeepPartial the best-scoring settings
// seen for each variant are written instead.
package calibrate
