package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/dot5enko/simple-object-db/config"
	"github.com/dot5enko/simple-object-db/manager"
	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:          "sodb",
	Short:        "In-memory object store with a composable query engine",
	SilenceUsage: true,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Seed a shoe catalog and run sample queries against it",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("records")

		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if err := seedShoes(m, count); err != nil {
			return err
		}

		return runDemo(cmd.Context(), m)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <spec.json>",
	Short: "Load schemas and records from json files and run a query spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, _ := cmd.Flags().GetString("schema")
		dataPath, _ := cmd.Flags().GetString("data")

		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if err := loadDataset(m, schemaPath, dataPath); err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading query spec: %w", err)
		}

		spec, err := query.ParseSpec(raw)
		if err != nil {
			return err
		}

		plan, err := query.Compile(m.Meta, spec)
		if err != nil {
			return err
		}

		return execute(cmd.Context(), m, plan)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "dump plans and execution stats")

	demoCmd.Flags().Int("records", 200, "number of shoes to generate")

	queryCmd.Flags().String("schema", "schema.json", "json array of collection schemas")
	queryCmd.Flags().String("data", "data.json", "json file with records and links")

	rootCmd.AddCommand(demoCmd, queryCmd)
}

func openManager() (*manager.Manager, error) {
	cfg, err := config.Load(config.EnvPrefix, configPath)
	if err != nil {
		return nil, err
	}

	if debug {
		cfg.LogLevel = "debug"
	}

	return manager.New(cfg)
}

func seedShoes(m *manager.Manager, count int) error {

	err := m.CreateSchema(
		&schema.Schema{
			Name: "Shoe",
			Columns: []schema.SchemaColumn{
				{Name: "model", Type: schema.StringFieldType},
				{Name: "size", Type: schema.Uint8FieldType, Nullable: true},
				{Name: "color", Type: schema.StringFieldType, Nullable: true},
				{Name: "price", Type: schema.Float32FieldType, Nullable: true},
			},
			Indexes: []schema.IndexDef{
				{Name: "by_size", Fields: []string{"size"}},
				{Name: "by_model_size", Fields: []string{"model", "size"}},
			},
			Links: []schema.LinkDef{{Name: "brand", Target: "Brand"}},
		},
		&schema.Schema{
			Name: "Brand",
			Columns: []schema.SchemaColumn{
				{Name: "name", Type: schema.StringFieldType},
				{Name: "country", Type: schema.StringFieldType},
			},
			Indexes: []schema.IndexDef{{Name: "by_name", Fields: []string{"name"}, Unique: true}},
			Links:   []schema.LinkDef{{Name: "shoes", Target: "Shoe", Backlink: true, Via: "brand"}},
		},
	)
	if err != nil {
		return err
	}

	brands, err := m.Ingest("Brand",
		map[string]any{"name": "Acme", "country": "DE"},
		map[string]any{"name": "Stride", "country": "IT"},
		map[string]any{"name": "Nimbus", "country": "US"},
	)
	if err != nil {
		return err
	}

	models := []string{"Runner", "Trail", "Court", "Boot", "Sandal"}
	colors := []string{"red", "Red", "black", "white", "blue"}

	rows := make([]map[string]any, count)
	for i := range rows {
		row := map[string]any{
			"model": models[rand.Intn(len(models))],
			"color": colors[rand.Intn(len(colors))],
			"price": float32(40 + rand.Intn(160)),
		}
		if rand.Intn(12) != 0 {
			row["size"] = 36 + rand.Intn(12)
		}
		rows[i] = row
	}

	shoes, err := m.Ingest("Shoe", rows...)
	if err != nil {
		return err
	}

	for _, id := range shoes {
		if err := m.Link("Shoe", "brand", id, brands[rand.Intn(len(brands))]); err != nil {
			return err
		}
	}

	color.Green("seeded %d shoes from %d brands", len(shoes), len(brands))

	return nil
}

func runDemo(ctx context.Context, m *manager.Manager) error {

	shoes := m.Query("Shoe")

	samples := []struct {
		title string
		query *query.Builder
	}{
		{"size at most 40, nulls included", m.Query("Shoe").LessThan("size", 40, query.Inclusive()).Limit(5)},
		{"runners between 41 and 44 via composite index", m.Query("Shoe").EqualTo("model", "Runner").Between("size", 41, 44).Limit(5)},
		{"one shoe per color, case-insensitive", m.Query("Shoe").DistinctBy("color", query.CaseInsensitive())},
		{"cheapest boots first", m.Query("Shoe").EqualTo("model", "Boot").SortBy("price", query.Asc).ThenBy("size", query.Desc).Limit(3)},
		{"italian shoes", shoes.LinkExists("brand", shoes.Related("brand").EqualTo("country", "IT")).Limit(3)},
		{"models matching *r?n*", query.AnyOf(m.Query("Shoe"), "size", []int{38, 45}).Matches("model", "*r?n*", query.CaseInsensitive()).Limit(3)},
	}

	for _, s := range samples {
		plan, err := s.query.Build()
		if err != nil {
			return fmt.Errorf("%s: %w", s.title, err)
		}

		color.Cyan("== %s", s.title)
		if err := execute(ctx, m, plan); err != nil {
			return err
		}
	}

	avg, err := m.Average(ctx, m.Query("Shoe").EqualTo("model", "Trail"), "price")
	if err != nil {
		return err
	}
	color.Cyan("== average trail price")
	fmt.Printf("%.2f\n", avg)

	count, err := m.Count(ctx, m.Query("Shoe").IsNull("size"))
	if err != nil {
		return err
	}
	color.Cyan("== shoes without a size")
	fmt.Println(count)

	return nil
}

func execute(ctx context.Context, m *manager.Manager, plan *query.QueryPlan) error {

	if debug {
		spew.Dump(plan.Where)
	}
	color.White("%s", plan.String())

	res, err := m.Run(ctx, plan)
	if errors.Is(err, executor.ErrNotFound) {
		color.Yellow("nothing found")
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case res.Terminal == query.FindAllTerminal || res.Terminal == query.FindFirstTerminal:
		for _, r := range res.Records {
			fmt.Println(r.String())
		}
	case res.Terminal == query.PropertyTerminal:
		for _, v := range res.Values {
			fmt.Println(v.String())
		}
	case res.Terminal.IsAggregate():
		fmt.Println(res.Value.String())
	default:
		fmt.Println(res.Count)
	}

	if debug {
		spew.Dump(res.Stats)
	}

	return nil
}

type dataset struct {
	Records map[string][]map[string]any `json:"records"`
	Links   []struct {
		Collection string   `json:"collection"`
		Relation   string   `json:"relation"`
		From       uint64   `json:"from"`
		To         []uint64 `json:"to"`
	} `json:"links"`
}

func loadDataset(m *manager.Manager, schemaPath, dataPath string) error {

	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("reading schemas: %w", err)
	}

	var schemas []*schema.Schema
	if err := json.Unmarshal(raw, &schemas); err != nil {
		return fmt.Errorf("decoding schemas: %w", err)
	}
	if err := m.CreateSchema(schemas...); err != nil {
		return err
	}

	raw, err = os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}

	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding records: %w", err)
	}

	// schema order keeps ids predictable for the link section
	for _, s := range schemas {
		rows := data.Records[s.Name]
		if len(rows) == 0 {
			continue
		}
		if _, err := m.Ingest(s.Name, rows...); err != nil {
			return fmt.Errorf("ingesting %s: %w", s.Name, err)
		}
	}

	for _, l := range data.Links {
		if err := m.Link(l.Collection, l.Relation, l.From, l.To...); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("%s", err.Error())
		os.Exit(1)
	}
}
