package app

import "math"

// DefaultKFactor is the Elo K used when none is configured.
const DefaultKFactor = 32

// ExpectedScore is the Elo expectation of a player rated ra against rb.
func ExpectedScore(ra, rb int) float64 {
	return 1 / (1 + math.Pow(10, float64(rb-ra)/400))
}

// CalculateRating applies a paired Elo update. Scores are fractions of the
// achievable points, so partial performance moves ratings too.
func CalculateRating(ratingA, ratingB int, scoreA, scoreB, k float64) (int, int) {
	ea := ExpectedScore(ratingA, ratingB)
	eb := ExpectedScore(ratingB, ratingA)
	newA := int(math.Round(float64(ratingA) + k*(scoreA-ea)))
	newB := int(math.Round(float64(ratingB) + k*(scoreB-eb)))
	return newA, newB
}

// ScoreRatio is points over the achievable total, zero when nothing was achievable.
func ScoreRatio(points, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(points) / float64(total)
}

// AverageSolveTime averages solve times in seconds. An empty list averages to 0.
func AverageSolveTime(times []int) float64 {
	if len(times) == 0 {
		return 0
	}
	sum := 0
	for _, t := range times {
		sum += t
	}
	return float64(sum) / float64(len(times))
}
