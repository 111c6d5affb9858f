package srs

import (
	"math"
	"time"

	"github.com/remvault/remvault/internal/domain"
)

// The FSRS forgetting curve is R(t, S) = (1 + factor*t/S)^decay, chosen so
// that R(S, S) equals 0.9: after S days the probability of recall has
// dropped to 90%.
const (
	decay  = -0.5
	factor = 19.0 / 81.0
)

// retrievability returns the predicted probability of recall after
// elapsedDays given the current stability.
//
// Stability of zero means the rem has no established memory state yet; its
// retrievability is treated as zero so the first review always behaves as
// initial learning.
func retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	return math.Pow(1+factor*elapsedDays/stability, decay)
}

// nextIntervalDays inverts the forgetting curve: it returns the number of
// days after which retrievability is predicted to fall to the desired
// retention, clamped to the configured interval bounds.
func nextIntervalDays(stability float64, params *Params) int {
	raw := stability / factor * (math.Pow(params.DesiredRetention, 1/decay) - 1)
	interval := int(math.Round(raw))
	if interval < params.MinIntervalDays {
		interval = params.MinIntervalDays
	}
	if interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// initialStability returns the stability established by the first review,
// taken directly from the first four weights.
func initialStability(outcome domain.ReviewOutcome, params *Params) float64 {
	return params.Weights[outcome.Grade()-1]
}

// initialDifficulty returns the difficulty established by the first review:
// D0(G) = w4 - e^(w5*(G-1)) + 1, clamped to [1, 10].
func initialDifficulty(outcome domain.ReviewOutcome, params *Params) float64 {
	g := float64(outcome.Grade())
	d := params.Weights[4] - math.Exp(params.Weights[5]*(g-1)) + 1
	return clampDifficulty(d)
}

// nextDifficulty updates difficulty for a subsequent review. The grade
// shifts difficulty linearly (w6), then mean reversion (w7) pulls the result
// toward the initial difficulty of an easy first rating, which keeps
// difficulty from drifting to the extremes over long histories.
func nextDifficulty(current float64, outcome domain.ReviewOutcome, params *Params) float64 {
	g := float64(outcome.Grade())
	shifted := current - params.Weights[6]*(g-3)
	reverted := params.Weights[7]*initialDifficulty(domain.ReviewOutcomeEasy, params) +
		(1-params.Weights[7])*shifted
	return clampDifficulty(reverted)
}

// nextRecallStability computes the new stability after a successful review
// (hard, good, or easy). Growth is larger for easier rems (11-D), smaller
// for already-stable rems (S^-w9), and larger the closer the review came to
// being forgotten (e^(w10*(1-R))-1). Hard applies a penalty (w15), easy a
// bonus (w16).
func nextRecallStability(
	difficulty, stability, retrievability float64,
	outcome domain.ReviewOutcome,
	params *Params,
) float64 {
	hardPenalty := 1.0
	if outcome == domain.ReviewOutcomeHard {
		hardPenalty = params.Weights[15]
	}
	easyBonus := 1.0
	if outcome == domain.ReviewOutcomeEasy {
		easyBonus = params.Weights[16]
	}

	growth := math.Exp(params.Weights[8]) *
		(11 - difficulty) *
		math.Pow(stability, -params.Weights[9]) *
		(math.Exp(params.Weights[10]*(1-retrievability)) - 1) *
		hardPenalty *
		easyBonus

	return stability * (1 + growth)
}

// nextForgetStability computes the post-lapse stability after an "again"
// review. The result is capped at the previous stability: forgetting never
// makes a memory stronger.
func nextForgetStability(
	difficulty, stability, retrievability float64,
	params *Params,
) float64 {
	s := params.Weights[11] *
		math.Pow(difficulty, -params.Weights[12]) *
		(math.Pow(stability+1, params.Weights[13]) - 1) *
		math.Exp(params.Weights[14]*(1-retrievability))

	return math.Min(s, stability)
}

func clampDifficulty(d float64) float64 {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return d
}

// elapsedDays returns the whole and fractional days between the last review
// and now, never negative.
func elapsedDays(lastReviewedAt, now time.Time) float64 {
	if lastReviewedAt.IsZero() || now.Before(lastReviewedAt) {
		return 0
	}
	return now.Sub(lastReviewedAt).Hours() / 24
}

// calculateNextSchedule creates a new RemSchedule with updated FSRS state
// based on the review outcome. It follows the immutable update pattern:
// the input schedule is never modified.
//
// First reviews establish initial stability and difficulty from the weight
// vector. Subsequent reviews update difficulty, then stability via the
// recall or forget formula depending on the outcome. "Again" outcomes
// increment the lapse count and schedule a short relearning step in minutes
// rather than days; all other outcomes schedule the next review at the
// interval where retrievability is predicted to reach the desired retention.
func calculateNextSchedule(
	schedule *domain.RemSchedule,
	outcome domain.ReviewOutcome,
	now time.Time,
	params *Params,
) *domain.RemSchedule {
	next := &domain.RemSchedule{
		UserID:         schedule.UserID,
		RemID:          schedule.RemID,
		Stability:      schedule.Stability,
		Difficulty:     schedule.Difficulty,
		Interval:       schedule.Interval,
		ReviewCount:    schedule.ReviewCount,
		LapseCount:     schedule.LapseCount,
		LastReviewedAt: schedule.LastReviewedAt,
		NextReviewAt:   schedule.NextReviewAt,
		CreatedAt:      schedule.CreatedAt,
		UpdatedAt:      schedule.UpdatedAt,
	}

	if schedule.IsNew() {
		next.Stability = initialStability(outcome, params)
		next.Difficulty = initialDifficulty(outcome, params)
	} else {
		r := retrievability(elapsedDays(schedule.LastReviewedAt, now), schedule.Stability)
		next.Difficulty = nextDifficulty(schedule.Difficulty, outcome, params)
		if outcome == domain.ReviewOutcomeAgain {
			next.Stability = nextForgetStability(schedule.Difficulty, schedule.Stability, r, params)
		} else {
			next.Stability = nextRecallStability(schedule.Difficulty, schedule.Stability, r, outcome, params)
		}
	}

	next.ReviewCount++
	next.LastReviewedAt = now
	next.UpdatedAt = now

	if outcome == domain.ReviewOutcomeAgain {
		next.LapseCount++
		next.Interval = 0
		next.NextReviewAt = now.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
		return next
	}

	next.Interval = nextIntervalDays(next.Stability, params)
	next.NextReviewAt = now.AddDate(0, 0, next.Interval)
	return next
}
