package contracts

// ScoreLevel is the five-level directional stance for one market and
// timeframe. Negative is bearish, positive is bullish.
type ScoreLevel int

const (
	ScoreStrongBearish ScoreLevel = -2
	ScoreBearish       ScoreLevel = -1
	ScoreNeutral       ScoreLevel = 0
	ScoreBullish       ScoreLevel = 1
	ScoreStrongBullish ScoreLevel = 2
)

// WeightedInput records one signal that went into a score, with the weight
// applied and the resulting contribution. Kept for the thinking log so a
// reader can reproduce the weighted sum by hand.
type WeightedInput struct {
	Name         string  `json:"name"`
	Signal       float64 `json:"signal"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Missing      bool    `json:"missing,omitempty"`
}

// Score is the scored stance for one country and timeframe.
type Score struct {
	Country   string          `json:"country"`
	Timeframe string          `json:"timeframe"`
	Level     ScoreLevel      `json:"level"`
	Raw       float64         `json:"raw"`
	Inputs    []WeightedInput `json:"inputs"`
}

// Label returns the human-readable name for the level.
func (l ScoreLevel) Label() string {
	switch l {
	case ScoreStrongBearish:
		return "strong bearish"
	case ScoreBearish:
		return "bearish"
	case ScoreNeutral:
		return "neutral"
	case ScoreBullish:
		return "bullish"
	case ScoreStrongBullish:
		return "strong bullish"
	default:
		return "unknown"
	}
}

// Valid reports whether the level is inside the allowed range.
func (l ScoreLevel) Valid() bool {
	return l >= ScoreStrongBearish && l <= ScoreStrongBullish
}
