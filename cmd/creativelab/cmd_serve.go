package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/server"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/clickhouse"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/memory"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/postgres"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/sqlite"
)

var serveFlags struct {
	addr          string
	corpusPath    string
	sqlitePath    string
	postgresDSN   string
	clickhouseDSN string
	verbose       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation HTTP API",
	Long: `Serve starts the HTTP API: card evaluation, report rendering,
knowledge-store review queries and the card library.

Stores are optional. Without --sqlite the knowledge store is held in
memory; without --postgres the card library is held in memory; metric
snapshots go to ClickHouse only when --clickhouse is set.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", ":8080", "Listen address")
	f.StringVar(&serveFlags.corpusPath, "corpus", "", "Optional corpus YAML override")
	f.StringVar(&serveFlags.sqlitePath, "sqlite", "", "Knowledge store DB path (default: in-memory)")
	f.StringVar(&serveFlags.postgresDSN, "postgres", "", "Card library DSN (default: in-memory)")
	f.StringVar(&serveFlags.clickhouseDSN, "clickhouse", "", "Metric snapshot store DSN (default: disabled)")
	f.BoolVarP(&serveFlags.verbose, "verbose", "v", false, "Log pipeline phases")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCorpus(serveFlags.corpusPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := orchestrator.Options{Corpus: cfg, Verbose: serveFlags.verbose}

	if serveFlags.sqlitePath != "" {
		store, err := sqlite.Open(serveFlags.sqlitePath)
		if err != nil {
			return fmt.Errorf("open knowledge store: %w", err)
		}
		defer store.Close()
		opts.Knowledge = store
	} else {
		opts.Knowledge = memory.NewKnowledgeStore()
	}

	if serveFlags.clickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, serveFlags.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()
		opts.MetricsStore = clickhouse.NewMetricSnapshotStore(conn)
	}

	var cards storage.CardStore
	if serveFlags.postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, serveFlags.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		cards = postgres.NewCardStore(pool)
	} else {
		cards = memory.NewCardStore()
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}
	s, err := server.New(server.Options{
		Orchestrator: orch,
		Knowledge:    opts.Knowledge,
		Cards:        cards,
	})
	if err != nil {
		return err
	}

	log.Printf("listening on %s", serveFlags.addr)
	return http.ListenAndServe(serveFlags.addr, s.Router())
}
