// Package dice implements the dice-rolling logic for encounter resolution.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ErrMissingDice indicates a roll request had no dice specified.
var ErrMissingDice = errors.New("at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// ErrInvalidNotation indicates a dice expression could not be parsed.
var ErrInvalidNotation = errors.New("dice notation must match NdM, NdM+K, or NdM-K")

// DiceSpec describes a die to roll and how many times to roll it.
type DiceSpec struct {
	Sides int
	Count int
}

// DieRoll captures the results for a single dice spec.
type DieRoll struct {
	Sides   int
	Results []int
	Total   int
}

// RollRequest describes a request to roll one or more dice.
type RollRequest struct {
	Dice     []DiceSpec
	Modifier int
	Seed     int64
}

// RollResult captures the results from rolling multiple dice.
type RollResult struct {
	Rolls    []DieRoll
	Modifier int
	Total    int
}

// RollDice rolls dice based on the provided request.
//
// # Determinism
//
// RollDice is deterministic with respect to the Seed field on RollRequest.
// Given the same Seed and the same Dice slice (including order and values),
// RollDice will always produce the same RollResult.
//
// # Totals
//
// For each DieRoll in RollResult.Rolls, the Total field is the sum of all
// values in Results for that dice specification. The RollResult.Total field
// is the sum of Total for all DieRoll entries plus the flat Modifier.
//
// Constraints and errors
//
//   - At least one DiceSpec must be provided in RollRequest.Dice, otherwise
//     ErrMissingDice is returned.
//   - Each DiceSpec must have Sides > 0 and Count > 0, otherwise
//     ErrInvalidDiceSpec is returned.
func RollDice(request RollRequest) (RollResult, error) {
	if len(request.Dice) == 0 {
		return RollResult{}, ErrMissingDice
	}

	rng := rand.New(rand.NewSource(request.Seed))
	rolls := make([]DieRoll, 0, len(request.Dice))
	total := request.Modifier

	for _, spec := range request.Dice {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return RollResult{}, ErrInvalidDiceSpec
		}

		results := make([]int, spec.Count)
		rollTotal := 0
		for i := 0; i < spec.Count; i++ {
			value := rollDie(rng, spec.Sides)
			results[i] = value
			rollTotal += value
		}

		rolls = append(rolls, DieRoll{
			Sides:   spec.Sides,
			Results: results,
			Total:   rollTotal,
		})
		total += rollTotal
	}

	return RollResult{
		Rolls:    rolls,
		Modifier: request.Modifier,
		Total:    total,
	}, nil
}

// Notation is a parsed dice expression such as "2d6+3".
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// String renders the notation back to its canonical NdM±K form.
func (n Notation) String() string {
	base := fmt.Sprintf("%dd%d", n.Count, n.Sides)
	if n.Modifier == 0 {
		return base
	}
	return fmt.Sprintf("%s%+d", base, n.Modifier)
}

// ParseNotation parses expressions of the form NdM, NdM+K, and NdM-K.
// The count defaults to 1 when omitted ("d20" rolls one die). Whitespace
// inside the expression is ignored.
func ParseNotation(raw string) (Notation, error) {
	expr := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	countPart, rest, found := strings.Cut(expr, "d")
	if !found || rest == "" {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, raw)
	}

	count := 1
	if countPart != "" {
		parsed, err := strconv.Atoi(countPart)
		if err != nil {
			return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, raw)
		}
		count = parsed
	}

	sidesPart := rest
	modifier := 0
	if idx := strings.IndexAny(rest, "+-"); idx >= 0 {
		sidesPart = rest[:idx]
		parsed, err := strconv.Atoi(rest[idx:])
		if err != nil {
			return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, raw)
		}
		modifier = parsed
	}

	sides, err := strconv.Atoi(sidesPart)
	if err != nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, raw)
	}
	if count <= 0 || sides <= 0 {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, raw)
	}

	return Notation{Count: count, Sides: sides, Modifier: modifier}, nil
}

// RollNotation parses and rolls a dice expression with the provided seed.
func RollNotation(notation string, seed int64) (RollResult, error) {
	parsed, err := ParseNotation(notation)
	if err != nil {
		return RollResult{}, err
	}
	return RollDice(RollRequest{
		Dice:     []DiceSpec{{Sides: parsed.Sides, Count: parsed.Count}},
		Modifier: parsed.Modifier,
		Seed:     seed,
	})
}

// rollDie rolls a die with the provided number of sides.
func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}
