package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mapdex/internal/mappings"
	"mapdex/internal/query"
)

var (
	queryNamespace string
	queryVersion   string
	queryAccuracy  string
	queryLimit     int
	queryFormat    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look up classes, fields or methods by name",
	Long: `Look up mapping entries by mapped, intermediary or obfuscated name.

Member keys may name the owner: "Block.getName", "Block#getName" or
"net/minecraft/Block/getName". Either part may be "*".

Examples:
  mapdex query class Block -n yarn -v 1.20.1
  mapdex query method Block#getName --accuracy fuzzy
  mapdex query field "*/field_1234" --format yaml`,
}

func newQuerySubcommand(kind query.Kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind) + " <key>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runQuery(cmd, kind, args[0])
		},
	}
}

func init() {
	queryCmd.PersistentFlags().StringVarP(&queryNamespace, "namespace", "n", "", "Namespace id or alias (default: first declared)")
	queryCmd.PersistentFlags().StringVarP(&queryVersion, "version", "v", "", "Game version (default: the namespace default or latest)")
	queryCmd.PersistentFlags().StringVar(&queryAccuracy, "accuracy", "", "exact, fuzzy or a number in (0,1] (default: from config)")
	queryCmd.PersistentFlags().IntVar(&queryLimit, "limit", 0, "Maximum number of results (default: from config)")
	queryCmd.PersistentFlags().StringVar(&queryFormat, "format", "human", "Output format (json, human, yaml)")

	queryCmd.AddCommand(newQuerySubcommand(query.KindClass, "Search classes"))
	queryCmd.AddCommand(newQuerySubcommand(query.KindField, "Search fields"))
	queryCmd.AddCommand(newQuerySubcommand(query.KindMethod, "Search methods"))
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, kind query.Kind, key string) {
	start := time.Now()
	logger := newLogger(queryFormat)
	app := mustGetApp(logger)
	defer app.Close()
	ctx := newContext()

	ns := queryNamespace
	if ns == "" {
		ids := app.Manager.Namespaces()
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no namespaces are declared")
			os.Exit(1)
		}
		ns = ids[0]
	}

	accuracyStr := app.Config.Query.Accuracy
	if queryAccuracy != "" {
		accuracyStr = queryAccuracy
	}
	accuracy, err := query.ParseAccuracy(accuracyStr)
	if err != nil {
		exitWithError("Error", err)
	}
	limit := app.Config.Query.Limit
	if cmd.Flags().Changed("limit") {
		limit = queryLimit
	}

	qc := query.QueryContext{
		Provider: func(ctx context.Context) (*mappings.Mappings, error) {
			return app.Manager.Load(ctx, ns, queryVersion)
		},
		SearchKey: key,
		Accuracy:  accuracy,
		Limit:     limit,
	}
	resp, err := executeQuery(ctx, kind, qc)
	if err != nil {
		exitWithError("Error querying mappings", err)
	}
	if len(resp.Results) == 0 {
		exitWithError("Error", query.ErrorNoResultsFound(kind, key))
	}

	output, err := FormatResponse(resp, OutputFormat(queryFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Query completed", map[string]interface{}{
		"namespace": resp.Namespace,
		"version":   resp.Version,
		"kind":      string(kind),
		"query":     key,
		"results":   len(resp.Results),
		"duration":  time.Since(start).Milliseconds(),
	})
}

// QueryResponseCLI contains query results for CLI output
type QueryResponseCLI struct {
	Namespace string        `json:"namespace" yaml:"namespace"`
	Version   string        `json:"version" yaml:"version"`
	Kind      string        `json:"kind" yaml:"kind"`
	Query     string        `json:"query" yaml:"query"`
	Results   []QueryHitCLI `json:"results" yaml:"results"`
}

// QueryHitCLI is one ranked entry
type QueryHitCLI struct {
	Display        string   `json:"display" yaml:"display"`
	Owner          string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Intermediary   string   `json:"intermediary" yaml:"intermediary"`
	Mapped         string   `json:"mapped,omitempty" yaml:"mapped,omitempty"`
	Obf            []string `json:"obf,omitempty" yaml:"obf,omitempty"`
	Descriptor     string   `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	MatchedOn      string   `json:"matchedOn,omitempty" yaml:"matchedOn,omitempty"`
	OwnerMatchedOn string   `json:"ownerMatchedOn,omitempty" yaml:"ownerMatchedOn,omitempty"`
	Score          float64  `json:"score" yaml:"score"`
}

func executeQuery(ctx context.Context, kind query.Kind, qc query.QueryContext) (*QueryResponseCLI, error) {
	switch kind {
	case query.KindClass:
		res, err := query.QueryClasses(ctx, qc)
		if err != nil {
			return nil, err
		}
		return convertClassResults(qc.SearchKey, res), nil
	case query.KindField:
		res, err := query.QueryFields(ctx, qc)
		if err != nil {
			return nil, err
		}
		return convertMemberResults(kind, qc.SearchKey, res, func(f *mappings.Field) *mappings.Member { return &f.Member }), nil
	case query.KindMethod:
		res, err := query.QueryMethods(ctx, qc)
		if err != nil {
			return nil, err
		}
		return convertMemberResults(kind, qc.SearchKey, res, func(m *mappings.Method) *mappings.Member { return &m.Member }), nil
	}
	return nil, fmt.Errorf("unknown query kind %q", kind)
}

func convertClassResults(key string, res *query.QueryResult[query.ClassHit]) *QueryResponseCLI {
	out := &QueryResponseCLI{
		Namespace: res.Metadata.Namespace,
		Version:   res.Metadata.Version,
		Kind:      string(query.KindClass),
		Query:     key,
		Results:   make([]QueryHitCLI, 0, len(res.Results)),
	}
	for _, r := range res.Results {
		c := r.Value.Class
		out.Results = append(out.Results, QueryHitCLI{
			Display:      c.OptimumName(),
			Intermediary: c.IntermediaryName,
			Mapped:       c.MappedName,
			Obf:          c.Obf.Names(),
			MatchedOn:    matchLabel(r.Value.Match),
			Score:        r.Score,
		})
	}
	return out
}

func convertMemberResults[M any](kind query.Kind, key string, res *query.QueryResult[query.MemberHit[M]], member func(M) *mappings.Member) *QueryResponseCLI {
	out := &QueryResponseCLI{
		Namespace: res.Metadata.Namespace,
		Version:   res.Metadata.Version,
		Kind:      string(kind),
		Query:     key,
		Results:   make([]QueryHitCLI, 0, len(res.Results)),
	}
	for _, r := range res.Results {
		m := member(r.Value.Member)
		owner := r.Value.Owner
		out.Results = append(out.Results, QueryHitCLI{
			Display:        mappings.SimpleName(owner.OptimumName()) + "." + m.OptimumName(),
			Owner:          owner.OptimumName(),
			Intermediary:   m.IntermediaryName,
			Mapped:         m.MappedName,
			Obf:            m.Obf.Names(),
			Descriptor:     m.IntermediaryDesc,
			MatchedOn:      matchLabel(r.Value.Match),
			OwnerMatchedOn: matchLabel(r.Value.OwnerMatch),
			Score:          r.Score,
		})
	}
	return out
}

func matchLabel(m *query.Match) string {
	if m == nil {
		return ""
	}
	return string(m.Facet) + " " + m.Name
}
