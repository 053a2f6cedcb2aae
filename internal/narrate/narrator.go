package narrate

import (
	"context"

	"github.com/wonny/marketbrief/internal/contracts"
)

// Input carries everything a narrator needs for one market and timeframe.
type Input struct {
	Country   string
	Timeframe string

	Technical contracts.TechnicalFeatures
	Macro     *contracts.MacroFeatures
	Valuation *contracts.ValuationFeatures
	Score     contracts.Score

	Stale        bool
	StaleAgeDays int
}

// Narrator writes the four-section commentary for a scored market.
type Narrator interface {
	Narrate(ctx context.Context, in Input) (contracts.Narration, error)
}
