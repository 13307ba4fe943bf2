package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/VaishakhVipin/stattwin/internal/services"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// queryFlags are shared by similar and rank-all.
type queryFlags struct {
	metric       string
	topK         int
	features     []string
	position     string
	samePosition bool
}

func (q *queryFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&q.metric, "metric", "m", "", "similarity metric: cosine|euclidean (default from config)")
	fs.IntVarP(&q.topK, "top-k", "k", 0, "number of matches per player (default from config)")
	fs.StringSliceVar(&q.features, "features", nil, "feature columns (default: all normalized columns)")
	fs.StringVar(&q.position, "position", "", "apply position weights for FW, MF, DF or GK")
	fs.BoolVar(&q.samePosition, "same-position", false, "only match players sharing a position group")
}

func (q *queryFlags) weights() *api.WeightsRequest {
	if q.position == "" {
		return nil
	}
	return &api.WeightsRequest{Position: q.position}
}

// filterFlags build an api.FilterSpec.
type filterFlags struct {
	leagues    []string
	leagueIDs  []int
	continents []string
	positions  []string
	seasons    []string
	minAge     float64
	maxAge     float64
	fs         *pflag.FlagSet
}

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.leagues, "leagues", nil, "league names")
	fs.IntSliceVar(&f.leagueIDs, "league-ids", nil, "league ids from the catalogue")
	fs.StringSliceVar(&f.continents, "continents", nil, "continents, e.g. Europe")
	fs.StringSliceVar(&f.positions, "positions", nil, "position tags, e.g. FW,MF")
	fs.StringSliceVar(&f.seasons, "seasons", nil, "seasons, e.g. 2023-2024")
	fs.Float64Var(&f.minAge, "min-age", 0, "minimum age")
	fs.Float64Var(&f.maxAge, "max-age", 60, "maximum age")
	f.fs = fs
}

func (f *filterFlags) spec() *api.FilterSpec {
	spec := &api.FilterSpec{
		Leagues:    f.leagues,
		LeagueIDs:  f.leagueIDs,
		Continents: f.continents,
		Positions:  f.positions,
		Seasons:    f.seasons,
	}
	if f.fs.Changed("min-age") || f.fs.Changed("max-age") {
		spec.AgeRange = &api.AgeRange{Min: f.minAge, Max: f.maxAge}
	}
	if spec.AgeRange == nil && len(spec.Leagues)+len(spec.LeagueIDs)+len(spec.Continents)+len(spec.Positions)+len(spec.Seasons) == 0 {
		return nil
	}
	return spec
}

// outputFlags select the result encoding and an optional export file.
type outputFlags struct {
	format string
	out    string
}

func (o *outputFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.format, "format", "f", "text", "stdout format: text|json")
	fs.StringVarP(&o.out, "out", "o", "", "also export results to a .csv, .json or .xlsx file")
}

func (o *outputFlags) validate() error {
	if o.format != "text" && o.format != "json" {
		return fmt.Errorf("format must be text or json, got %q", o.format)
	}
	return nil
}

func newSimilarCommand(c *cli) *cobra.Command {
	var (
		id      string
		index   int
		columns []string
		query   queryFlags
		filters filterFlags
		output  outputFlags
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Rank the players most similar to one player",
		Example: "  stattwin similar -i players.csv --id p123 -k 5\n" +
			"  stattwin similar -i players.xlsx --index 0 --position FW --same-position --leagues EPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.validate(); err != nil {
				return err
			}
			req := api.SimilarRequest{
				PlayerID:      id,
				Metric:        query.metric,
				TopK:          query.topK,
				Features:      query.features,
				Weights:       query.weights(),
				Filters:       filters.spec(),
				SamePosition:  query.samePosition,
				ReturnColumns: columns,
			}
			if cmd.Flags().Changed("index") {
				req.Index = &index
			}
			if err := c.validator.Struct(&req); err != nil {
				return describe(err)
			}

			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			resp, err := c.service.Similar(cmd.Context(), req)
			if err != nil {
				return err
			}

			order := fieldOrder(c.returnColumns(columns), resp.Matches)
			if output.out != "" {
				t, err := matchesTable("", resp.Matches, order)
				if err != nil {
					return err
				}
				if err := c.writer.WriteFile(output.out, t); err != nil {
					return err
				}
			}
			if output.format == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printSimilar(cmd.OutOrStdout(), resp, order)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&id, "id", "", "query player id")
	fs.IntVar(&index, "index", 0, "query row index (wins over --id)")
	fs.StringSliceVar(&columns, "columns", nil, "columns to show for each match")
	query.bind(fs)
	filters.bind(fs)
	output.bind(fs)
	return cmd
}

func newRankAllCommand(c *cli) *cobra.Command {
	var (
		query   queryFlags
		filters filterFlags
		output  outputFlags
	)

	cmd := &cobra.Command{
		Use:     "rank-all",
		Short:   "Rank neighbours for every player",
		Example: "  stattwin rank-all -i players.csv -k 3 -o neighbours.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.validate(); err != nil {
				return err
			}
			req := api.RankAllRequest{
				Metric:       query.metric,
				TopK:         query.topK,
				Features:     query.features,
				Weights:      query.weights(),
				Filters:      filters.spec(),
				SamePosition: query.samePosition,
			}
			if err := c.validator.Struct(&req); err != nil {
				return describe(err)
			}

			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			resp, err := c.service.RankAll(cmd.Context(), req)
			if err != nil {
				return err
			}

			order := fieldOrder(c.returnColumns(nil), firstMatches(resp))
			if output.out != "" {
				t, err := rankAllTable(resp, order)
				if err != nil {
					return err
				}
				if err := c.writer.WriteFile(output.out, t); err != nil {
					return err
				}
			}
			if output.format == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printRankAll(cmd.OutOrStdout(), resp)
		},
	}

	query.bind(cmd.Flags())
	filters.bind(cmd.Flags())
	output.bind(cmd.Flags())
	return cmd
}

func newFilterCommand(c *cli) *cobra.Command {
	var (
		columns []string
		limit   int
		filters filterFlags
		output  outputFlags
	)

	cmd := &cobra.Command{
		Use:     "filter",
		Short:   "List players matching age, league, continent, position and season filters",
		Example: "  stattwin filter -i players.csv --continents Europe --positions FW --min-age 18 --max-age 23",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.validate(); err != nil {
				return err
			}
			req := api.FilterRequest{Columns: columns, Limit: limit}
			if spec := filters.spec(); spec != nil {
				req.Filters = *spec
			}
			if err := c.validator.Struct(&req); err != nil {
				return describe(err)
			}

			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			resp, err := c.service.Filter(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output.out != "" {
				t, err := rowsTable(resp.Columns, resp.Rows)
				if err != nil {
					return err
				}
				if err := c.writer.WriteFile(output.out, t); err != nil {
					return err
				}
			}
			if output.format == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printFilter(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to list")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to list (default 100)")
	filters.bind(cmd.Flags())
	output.bind(cmd.Flags())
	return cmd
}

func newReportCommand(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the cleaning, validation and scaling report for the input",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			resp, err := c.service.Report(cmd.Context())
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printReport(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "stdout format: text|json")
	return cmd
}

func newLeaguesCommand(c *cli) *cobra.Command {
	var (
		q      services.LeagueQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   "leagues",
		Short: "List the league catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := services.NewLeagueService(c.registry, c.logger).List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printLeagues(cmd.OutOrStdout(), resp)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&q.Continent, "continent", "", "continent, e.g. Europe")
	fs.StringVar(&q.Country, "country", "", "country name or code")
	fs.StringVar(&q.Tier, "tier", "", "tier: 1st to 5th")
	fs.BoolVar(&q.MajorOnly, "major", false, "only major leagues")
	fs.StringVar(&q.Search, "q", "", "search league names")
	fs.StringVarP(&format, "format", "f", "text", "stdout format: text|json")
	return cmd
}

// returnColumns is the explicit list or the configured default.
func (c *cli) returnColumns(explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	return c.cfg.Ranking.ReturnColumns
}

func firstMatches(resp *api.RankAllResponse) []api.Match {
	for _, key := range resp.Keys {
		if m := resp.Results[key]; len(m) > 0 {
			return m
		}
	}
	return nil
}
