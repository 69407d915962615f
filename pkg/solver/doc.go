// Package solver proposes the next print settings for one variant from the
// history of its measurements.
//
// The solver is pure: it performs no I/O and keeps everything it knows about
// a variant in a [State]. The calibration driver feeds it one [Observation]
// per iteration through [State.Register] and then asks [ComputeNext] for the
// settings to try next.
//
// # Rules
//
// A proposal is produced by the first matching rule, optionally refined by
// follow-up rules. Every proposal carries the ordered list of rules that
// shaped it:
//
//  1. already-within-tolerance: one page and |delta| within tolerance; the
//     current settings are returned unchanged.
//  2. Overflow (more than one page): page-boundary-midpoint when the previous
//     observation fit one page, otherwise page-fit-contraction. Either may be
//     followed by bias-best-single-page.
//  3. One page outside tolerance: top-offset-bracket-midpoint or
//     top-offset-bracket-nudge once both bracket sides are known, otherwise
//     sign-cross-midpoint or top-offset-step. Either may be followed by
//     boundary-density-step when the offset is pinned at a range limit.
//  4. The proposal is clamped; if it still equals the current settings a
//     safety-nudge moves the top offset so the loop keeps making progress.
//
// # Bracket
//
// The bracket holds the tightest single-page observation on each side of
// zero delta. Increasing the top offset pushes content down and shrinks the
// bottom whitespace, so the negative side always sits at a lower offset than
// the zero crossing and bisecting between the two sides converges on it.
//
// # Usage
//
//	var st solver.State
//	st.Register(assessment, current, tol, iteration, tuning)
//	p := solver.ComputeNext(&st, current, assessment, tol, tuning)
//	next, strategy := p.Settings, p.Strategy()
package solver
