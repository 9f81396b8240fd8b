// Command plenum is the maintenance CLI for the governance journal: it can
// replay derived state, list committed events, verify log integrity, and
// file evidence events through the full commit path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/plenumhq/plenum/internal/kernel/event"
	"github.com/plenumhq/plenum/internal/kernel/journal"
	"github.com/plenumhq/plenum/internal/kernel/state"
	"github.com/plenumhq/plenum/internal/kernel/storage/sqlite"
	platformcmd "github.com/plenumhq/plenum/internal/platform/cmd"
	"github.com/plenumhq/plenum/internal/platform/config"
	"github.com/plenumhq/plenum/internal/platform/telemetry"
	"go.opentelemetry.io/otel"
)

type appConfig struct {
	DBPath string `env:"PLENUM_DB_PATH" envDefault:"plenum.db"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	command := os.Args[1]
	args := os.Args[2:]

	err := platformcmd.RunWithTelemetry(ctx, "plenum", func(ctx context.Context) error {
		return run(ctx, command, args)
	})
	if err != nil {
		config.Exitf("plenum %s: %v", command, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: plenum <state|events|verify|append> [flags]")
}

func run(ctx context.Context, command string, args []string) error {
	var cfg appConfig
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the journal database (overrides PLENUM_DB_PATH)")

	afterSeq := fs.Uint64("after", 0, "list events after this sequence position")
	limit := fs.Int("limit", 50, "maximum number of events to list")
	atSeq := fs.Uint64("seq", 0, "print the single event at this sequence position")

	evidenceID := fs.String("evidence-id", "", "evidence id to file")
	digest := fs.String("digest", "", "evidence content digest")
	source := fs.String("source", "", "evidence source")
	actorID := fs.String("actor", "", "actor id proposing the event")
	requestID := fs.String("request-id", "", "idempotency key for the append")

	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close journal store: %v", err)
		}
	}()

	sink, err := telemetry.NewMetricsSink(otel.GetMeterProvider().Meter("plenum"))
	if err != nil {
		return err
	}
	j, err := journal.New(store, journal.WithSink(sink))
	if err != nil {
		return err
	}

	switch command {
	case "state":
		return runState(ctx, j)
	case "events":
		if *atSeq > 0 {
			return runEventAt(ctx, j, *atSeq)
		}
		return runEvents(ctx, j, *afterSeq, *limit)
	case "verify":
		return runVerify(ctx, j)
	case "append":
		return runAppend(ctx, j, *evidenceID, *digest, *source, *actorID, *requestID)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runState(ctx context.Context, j *journal.Journal) error {
	st, err := j.State(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("log head: seq %d\n", st.LastSeq)
	fmt.Printf("delegations: %d\n", len(st.Delegations))
	fmt.Printf("laws: %d\n", len(st.Laws))
	fmt.Printf("evidence: %d\n", len(st.Evidence))
	fmt.Printf("procurements: %d\n", len(st.Procurements))

	open := make([]string, 0, len(st.Procurements))
	for id, procurement := range st.Procurements {
		if procurement.Status == state.ProcurementOpen {
			open = append(open, id)
		}
	}
	sort.Strings(open)
	for _, id := range open {
		fmt.Printf("  open procurement: %s (%d bids)\n", id, len(st.Procurements[id].Bids))
	}
	return nil
}

func runEvents(ctx context.Context, j *journal.Journal, afterSeq uint64, limit int) error {
	events, err := j.Events(ctx, afterSeq, limit)
	if err != nil {
		return err
	}
	for _, evt := range events {
		fmt.Printf("%6d  %s  %-28s  %s/%s\n",
			evt.Seq,
			evt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			evt.Type,
			evt.EntityType,
			evt.EntityID,
		)
	}
	return nil
}

func runEventAt(ctx context.Context, j *journal.Journal, seq uint64) error {
	evt, err := j.EventAt(ctx, seq)
	if err != nil {
		return err
	}
	fmt.Printf("seq:       %d\n", evt.Seq)
	fmt.Printf("id:        %s\n", evt.ID)
	fmt.Printf("type:      %s\n", evt.Type)
	fmt.Printf("timestamp: %s\n", evt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	fmt.Printf("entity:    %s/%s\n", evt.EntityType, evt.EntityID)
	if evt.ActorID != "" {
		fmt.Printf("actor:     %s\n", evt.ActorID)
	}
	fmt.Printf("hash:      %s\n", evt.Hash)
	fmt.Printf("chain:     %s\n", evt.ChainHash)
	fmt.Printf("payload:   %s\n", evt.PayloadJSON)
	return nil
}

func runVerify(ctx context.Context, j *journal.Journal) error {
	if err := j.VerifyIntegrity(ctx); err != nil {
		return err
	}
	fmt.Println("journal integrity verified")
	return nil
}

func runAppend(ctx context.Context, j *journal.Journal, evidenceID, digest, source, actorID, requestID string) error {
	candidate, err := event.New(event.TypeEvidenceFiled, "evidence", evidenceID, event.EvidenceFiled{
		EvidenceID: evidenceID,
		Digest:     digest,
		Source:     source,
	})
	if err != nil {
		return err
	}
	candidate.ActorID = actorID
	candidate.RequestID = requestID

	committed, err := j.Append(ctx, candidate)
	if err != nil {
		return err
	}
	fmt.Printf("committed seq %d id %s\n", committed.Seq, committed.ID)
	return nil
}
