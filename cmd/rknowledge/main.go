// Command rknowledge turns a corpus of documents into a weighted concept
// graph: extracting relations with an LLM provider, folding them into a
// canonical graph, detecting communities, and answering analytics queries
// against the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rknowledge/internal/analytics"
	"rknowledge/internal/batch"
	"rknowledge/internal/community"
	"rknowledge/internal/config"
	"rknowledge/internal/docselect"
	"rknowledge/internal/graph"
	"rknowledge/internal/graphstore"
	"rknowledge/internal/llmprovider"
	"rknowledge/internal/observability"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = runInit(args)
	case "add":
		err = runAdd(args)
	case "build":
		err = runBuild(args)
	case "stats":
		err = runStats(args)
	case "path":
		err = runPath(args)
	case "query":
		err = runQuery(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("rknowledge %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `rknowledge builds and queries a knowledge graph extracted from documents.

Usage:
  rknowledge init                          write a default config.toml
  rknowledge add [-config path] <paths...>  extract relations from files or
                                            directories and merge them into
                                            the graph store
  rknowledge build [-config path]          recompute communities over the
                                            full stored graph
  rknowledge stats [-config path]          print aggregate graph statistics
  rknowledge path [-config path] <a> <b>   shortest path between two concepts
  rknowledge query [-config path] <term>   search node labels for a substring`)
}

// loadConfig resolves -config (default: the platform config path) and loads it.
func loadConfig(fset *flag.FlagSet) (config.Config, error) {
	configPath := fset.Lookup("config").Value.String()
	if configPath == "" {
		var err error
		configPath, err = config.Path()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(configPath)
}

func runInit(args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	force := fset.Bool("force", false, "overwrite an existing config file")
	if err := fset.Parse(args); err != nil {
		return err
	}

	path, err := config.Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTOML), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	fmt.Println("wrote", path)
	return nil
}

const defaultConfigTOML = `default_provider = "anthropic"
chunk_size = 1500
chunk_overlap = 150

[providers.anthropic]
api_key = "${ANTHROPIC_API_KEY}"

[providers.openai]
api_key = "${OPENAI_API_KEY}"

[providers.ollama]
base_url = "http://localhost:11434"
model = "mistral"

[providers.google]
api_key = "${GOOGLE_API_KEY}"

[graph]
backend = "memory"

[processing]
concurrency = 4
batch_size = 5
`

// newFlagSetWithConfig builds a FlagSet pre-registered with the shared
// -config and -provider flags every data-touching subcommand accepts.
func newFlagSetWithConfig(name string) (*flag.FlagSet, *string, *string) {
	fset := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fset.String("config", "", "path to config.toml (default: platform config dir)")
	provider := fset.String("provider", "", "override the configured default LLM provider")
	return fset, configPath, provider
}

// runAdd extracts relations from the given files (directories are walked
// recursively) and merges them into the graph store. It does not recompute
// communities; run `rknowledge build` after a batch of `add` runs.
func runAdd(args []string) error {
	fset, _, provider := newFlagSetWithConfig("add")
	if err := fset.Parse(args); err != nil {
		return err
	}
	paths := fset.Args()
	if len(paths) == 0 {
		return fmt.Errorf("usage: rknowledge add [-config path] <paths...>")
	}

	candidates, err := collectDocuments(paths)
	if err != nil {
		return err
	}

	selected := candidates
	if len(candidates) > docselect.Threshold {
		selected = docselect.Select(candidates, docselect.DefaultMaxPerDir)
		log.Printf("add: selected %d of %d documents", len(selected), len(candidates))
	}

	docs := make([]batch.Document, len(selected))
	for i, d := range selected {
		docs[i] = batch.Document{Source: d.Source, Text: d.Text}
	}
	return ingest(context.Background(), fset, *provider, docs)
}

// collectDocuments reads every file named in paths, walking directories
// recursively.
func collectDocuments(paths []string) ([]docselect.Document, error) {
	var docs []docselect.Document
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			text, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p, err)
			}
			docs = append(docs, docselect.Document{Source: p, Text: string(text)})
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			docs = append(docs, docselect.Document{Source: path, Text: string(text)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return docs, nil
}

// runBuild recomputes communities (C9) over the graph store's complete
// node and edge set and persists the assignments.
func runBuild(args []string) error {
	fset, _, _ := newFlagSetWithConfig("build")
	if err := fset.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(fset)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := recomputeCommunities(ctx, store, cfg.Graph.Tenant); err != nil {
		return err
	}
	log.Println("build: communities recomputed")
	return nil
}

// ingest runs the batch processor over docs and merges the resulting graph
// into the configured store.
func ingest(ctx context.Context, fset *flag.FlagSet, providerOverride string, docs []batch.Document) error {
	cfg, err := loadConfig(fset)
	if err != nil {
		return err
	}
	observability.InitLogger("", "info")

	providerName := cfg.DefaultProvider
	if providerOverride != "" {
		providerName = providerOverride
	}

	// Cloud adapters use this client; the local adapter builds its own.
	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})
	client, err := llmprovider.New(providerName, cfg, httpClient)
	if err != nil {
		return err
	}

	providerCfg, _ := cfg.Provider(providerName)
	model := providerCfg.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	if model == "" {
		model = providerName
	}
	processor := batch.NewProcessor(client.ExtractRelations, model, cfg.Processing.Concurrency, cfg.Processing.BatchSize)
	if cfg.Processing.Progress != "" {
		processor = processor.WithProgressPersistence(cfg.Processing.Progress)
		if err := processor.LoadProgress(); err != nil {
			return err
		}
	}

	count, err := processor.ProcessDocuments(ctx, docs)
	if err != nil {
		return err
	}
	log.Printf("ingest: extracted %d relations from %d documents via %s", count, len(docs), client.ProviderName())

	builder := processor.Builder()
	builder.CalculateContextualProximity()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return mergeIntoStore(ctx, store, cfg.Graph.Tenant, builder)
}

func openStore(ctx context.Context, cfg config.Config) (graphstore.GraphStore, error) {
	switch strings.ToLower(cfg.Graph.Backend) {
	case "", "memory":
		return graphstore.NewMemoryGraph(), nil
	case "postgres":
		if cfg.Graph.DSN == "" {
			return nil, fmt.Errorf("graph.dsn is required for the postgres backend")
		}
		pool, err := graphstore.OpenPool(ctx, cfg.Graph.DSN)
		if err != nil {
			return nil, err
		}
		return graphstore.NewPostgresGraph(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Graph.Backend)
	}
}

func mergeIntoStore(ctx context.Context, store graphstore.GraphStore, tenant string, builder *graph.Builder) error {
	for _, n := range builder.Nodes() {
		record := graphstore.NodeRecord{Key: strings.ToLower(n.Label), Label: n.Label, EntityType: n.EntityType}
		if err := store.UpsertNode(ctx, tenant, record); err != nil {
			return fmt.Errorf("upsert node %s: %w", n.ID, err)
		}
	}
	for _, e := range builder.Edges() {
		sourceKey, targetKey := graphstore.EdgeKey(strings.ToLower(e.Source), strings.ToLower(e.Target))
		record := graphstore.EdgeRecord{
			SourceKey: sourceKey,
			TargetKey: targetKey,
			Relation:  e.Relation,
			Weight:    e.Weight,
			ChunkIDs:  e.ChunkIDs,
		}
		if err := store.UpsertEdge(ctx, tenant, record); err != nil {
			return fmt.Errorf("upsert edge %s-%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

// recomputeCommunities re-runs label propagation over the store's complete
// node and edge set and persists the result.
func recomputeCommunities(ctx context.Context, store graphstore.GraphStore, tenant string) error {
	nodes, err := store.Nodes(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	edges, err := store.Edges(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list edges: %w", err)
	}

	g := community.NewGraph()
	for _, n := range nodes {
		g.AddNode(n.Key)
	}
	for _, e := range edges {
		g.AddEdge(e.SourceKey, e.TargetKey, e.Weight)
	}
	assignment := g.LabelPropagation(50)

	for key, id := range assignment {
		if err := store.SetCommunity(ctx, tenant, key, id); err != nil {
			return fmt.Errorf("set community for %s: %w", key, err)
		}
	}
	return nil
}

// loadAnalyticsGraph rehydrates the stored graph into an analytics.Graph.
func loadAnalyticsGraph(ctx context.Context, store graphstore.GraphStore, tenant string) (*analytics.Graph, error) {
	nodes, err := store.Nodes(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	edges, err := store.Edges(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}

	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
	}
	aedges := make([]analytics.Edge, len(edges))
	for i, e := range edges {
		aedges[i] = analytics.Edge{Source: e.SourceKey, Target: e.TargetKey, Weight: e.Weight}
	}
	return analytics.New(labels, aedges), nil
}

func runStats(args []string) error {
	fset, _, _ := newFlagSetWithConfig("stats")
	if err := fset.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(fset)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := loadAnalyticsGraph(ctx, store, cfg.Graph.Tenant)
	if err != nil {
		return err
	}
	stats := g.Stats()

	fmt.Printf("nodes:               %d\n", stats.NodeCount)
	fmt.Printf("edges:               %d\n", stats.EdgeCount)
	fmt.Printf("connected components: %d\n", stats.ConnectedComponents)
	fmt.Printf("communities:         %d\n", stats.CommunityCount)
	fmt.Printf("density:             %.4f\n", stats.Density)
	fmt.Printf("avg degree:          %.2f\n", stats.AvgDegree)
	fmt.Printf("max degree:          %d\n", stats.MaxDegree)

	fmt.Println("\ntop by PageRank:")
	for _, s := range stats.TopPageRank {
		fmt.Printf("  %-30s %.4f\n", s.Label, s.Score)
	}
	fmt.Println("\ntop by degree:")
	for _, c := range stats.TopDegree {
		fmt.Printf("  %-30s %d\n", c.Label, c.Count)
	}
	return nil
}

func runPath(args []string) error {
	fset, _, _ := newFlagSetWithConfig("path")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 2 {
		return fmt.Errorf("usage: rknowledge path [-config path] <from> <to>")
	}
	from, to := fset.Arg(0), fset.Arg(1)

	cfg, err := loadConfig(fset)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := loadAnalyticsGraph(ctx, store, cfg.Graph.Tenant)
	if err != nil {
		return err
	}
	cost, path, ok := g.ShortestPath(from, to)
	if !ok {
		return fmt.Errorf("no path between %q and %q", from, to)
	}
	fmt.Printf("cost: %.4f\n", cost)
	fmt.Println(strings.Join(path, " -> "))
	return nil
}

func runQuery(args []string) error {
	fset, _, _ := newFlagSetWithConfig("query")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return fmt.Errorf("usage: rknowledge query [-config path] <term>")
	}
	term := fset.Arg(0)

	cfg, err := loadConfig(fset)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	nodes, err := store.SearchNodes(ctx, cfg.Graph.Tenant, term)
	if err != nil {
		return err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Label < nodes[j].Label })
	for _, n := range nodes {
		fmt.Printf("%-30s type=%-12s community=%d\n", n.Label, n.EntityType, n.Community)
	}
	return nil
}
