// Package main provides the graphdb CLI entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dong-qiu/graphdb/pkg/config"
	"github.com/dong-qiu/graphdb/pkg/cypher"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphdb",
		Short: "graphdb - an embedded labeled property graph database",
		Long: `graphdb is an embedded graph database: a badger-backed storage
engine, a Cypher-subset query language, and shortest-path/
variable-length-expansion graph algorithms, all reachable from a single
open call.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphdb v%s (%s)\n", version, commit)
		},
	})

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open (creating if necessary) a database and report its label inventory",
		RunE:  runOpen,
	}
	bindStoreFlags(openCmd)
	rootCmd.AddCommand(openCmd)

	queryCmd := &cobra.Command{
		Use:   "query [cypher]",
		Short: "Execute a single Cypher statement and print the result rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	bindStoreFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive Cypher shell",
		RunE:  runRepl,
	}
	bindStoreFlags(replCmd)
	rootCmd.AddCommand(replCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "", "Data directory (overrides GRAPHDB_DATA_DIR and config.yaml)")
	cmd.Flags().String("namespace", "", "Graph namespace (overrides GRAPHDB_NAMESPACE and config.yaml)")
	cmd.Flags().String("config", "", "Path to config.yaml (defaults to the standard search path)")
	cmd.Flags().Bool("memory", false, "Open a purely in-memory database, ignoring --data-dir")
}

// loadConfig implements the flags > env vars > file > defaults precedence
// chain: it starts from whatever LoadFromFile resolves (file + env), then
// overlays any flag the caller actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Database.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("namespace"); v != "" {
		cfg.Database.Namespace = v
	}
	if v, _ := cmd.Flags().GetBool("memory"); v {
		cfg.Database.InMemory = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	if cfg.Database.InMemory {
		return storage.OpenInMemory(cfg.Database.Namespace)
	}
	return storage.Open(cfg.Database.DataDir, cfg.Database.Namespace)
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	labels, err := s.ListLabels()
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}

	fmt.Printf("opened namespace %q", cfg.Database.Namespace)
	if cfg.Database.InMemory {
		fmt.Print(" (in-memory)\n")
	} else {
		fmt.Printf(" at %s\n", cfg.Database.DataDir)
	}
	if len(labels) == 0 {
		fmt.Println("no labels yet")
		return nil
	}
	fmt.Println("labels:")
	for _, l := range labels {
		fmt.Printf("  %s\n", l)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	rows, err := runOne(s, args[0])
	if err != nil {
		return err
	}
	printRows(rows)
	return nil
}

func runOne(s *storage.Store, src string) ([]gvalue.Row, error) {
	stmt, err := cypher.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}
	rows, err := cypher.NewExecutor(s).Execute(stmt, nil)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

func printRows(rows []gvalue.Row) {
	if len(rows) == 0 {
		fmt.Println("0 rows")
		return
	}

	// Column order is not preserved by a map-shaped Row, so sort once per
	// result set for stable, readable output.
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sortStrings(cols)

	fmt.Println(strings.Join(cols, " | "))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = row[c].String()
		}
		fmt.Println(strings.Join(vals, " | "))
	}
	fmt.Printf("\n(%d row(s))\n", len(rows))
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("connected to namespace %q\n", cfg.Database.Namespace)
	fmt.Println("type 'exit' or Ctrl+D to quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("graphdb> ")
		if ctx.Err() != nil {
			fmt.Println("\nshutting down")
			return nil
		}
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		rows, err := runOne(s, query)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printRows(rows)
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Println("goodbye")
	return nil
}
