package tuner

import (
	"sort"

	"fantasy-backtest/internal/model"
)

// Variation is a named weight vector to compare.
type Variation struct {
	Name    string              `json:"name"`
	Weights model.FactorWeights `json:"weights"`
}

type Comparison struct {
	Name          string              `json:"name"`
	Weights       model.FactorWeights `json:"weights"`
	GamesAnalyzed int                 `json:"games_analyzed"`
	Accuracy      float64             `json:"accuracy"`
	MAE           float64             `json:"mae"`
	RMSE          float64             `json:"rmse"`
}

// Compare backtests each variation over the same prepared history and
// returns them best accuracy first. The player's stored weights are always
// included as "current".
func (t *Tuner) Compare(player string, games []model.GameContext, variations []Variation) []Comparison {
	prep := t.engine.Prepare(player, games)
	all := append([]Variation{{Name: "current", Weights: t.weights.Load(player)}}, variations...)

	out := make([]Comparison, 0, len(all))
	for _, v := range all {
		w := v.Weights.WithDefaults()
		res := prep.Evaluate(w)
		out = append(out, Comparison{
			Name:          v.Name,
			Weights:       w,
			GamesAnalyzed: res.GamesAnalyzed,
			Accuracy:      res.Accuracy,
			MAE:           res.MAE,
			RMSE:          res.RMSE,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Accuracy > out[j].Accuracy })
	return out
}
