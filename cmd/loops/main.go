package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/confixenvios/confixenvios-sub003/pkg/configs"
	kpg "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/args"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/filewatch"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

func main() {
	logger := log.Default()
	logger.SetFlags(logger.Flags() | log.Lmicroseconds)
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("CONFIX_LOOPS_CONFIG"), "path to config file",
	)
	//-- which loop type to run
	loopType := args.Parser(AsLoopType)
	flag.Var(loopType, "type", "loop type (dispatch|reconcile|housekeeping|all)")
	//-- loop policy
	policy := args.ParserWithDefault(recurring.ParsePolicy, recurring.Forever(0))
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	flag.Parse()

	if !loopType.IsSet() {
		logger.Fatal("-type is required")
	}

	{
		// watch config
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadLoops(*pconfig)).OrFatal(logger)

	db := try.To(kpg.New(
		ctx, conf.Database.URI, kpg.WithSchemaRepository(conf.Database.SchemaRepository),
	)).OrFatal(logger)
	defer db.Close()
	{
		ctx_, ccan := db.Schema().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	if err := db.Webhooks().SyncStatic(ctx, conf.Hooks, conf.HookSecret); err != nil {
		logger.Fatalf("can not register hooks: %s", err)
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value(), policy.Value(),
	)

	err := StartLoop(
		ctx, logger,
		Deps{
			Database: db,
			Sender: webhook.Sender{
				Client:    &http.Client{Timeout: conf.Dispatch.Timeout},
				UserAgent: conf.Dispatch.UserAgent,
			},
			Gateway: asaas.New(
				conf.Asaas.URL, conf.Asaas.APIKey,
				asaas.WithHTTPClient(&http.Client{Timeout: conf.Asaas.Timeout}),
			),
		},
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
			Config: conf,
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, " (loop context is cancelled by: ", context.Cause(ctx), ")")
	}
	logger.Fatal(err)
}
