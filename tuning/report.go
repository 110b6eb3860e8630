package tuning

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// WriteSearchReport prints the best combination followed by a table of
// every evaluated combination.
func WriteSearchReport(w io.Writer, res *OptimizeResult) error {
	if _, err := fmt.Fprintf(w, "Best parameters: \n %s\n", res.BestParams); err != nil {
		return err
	}
	if res.CVResults == nil {
		return nil
	}
	cv := res.CVResults

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Params", "Mean " + res.Scoring, "Std"})
	for i, params := range cv.Params {
		row := []string{
			strconv.Itoa(cv.RankTestScore[i]),
			params.String(),
			formatScore(cv.MeanTestScore[i]),
			formatScore(cv.StdTestScore[i]),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteEliminationReport prints the selection mask, the ranking, the optimal
// feature count and the per-size scores, then a per-feature table.
func WriteEliminationReport(w io.Writer, res *EliminationResult) error {
	if _, err := fmt.Fprintf(w, "selector support: \n %v \n selector ranking: \n %v\n", res.Support, res.Ranking); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Optimal number of features: \n %d \n Selector grid scores: \n %v \n",
		res.NFeatures, lo.Map(res.GridScores, func(s float64, _ int) string { return formatScore(s) })); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Feature", "Ranking", "Selected"})
	for j, rank := range res.Ranking {
		if err := table.Append([]string{strconv.Itoa(j), strconv.Itoa(rank), strconv.FormatBool(res.Support[j])}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
