// Command ledgerctl inspects and edits instrument ledgers from the command line, using the same
// services as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/config"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/version"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/workbook"
)

var (
	ledgerDir     string
	archiveSubdir string
	logLevel      string
	jsonOut       bool
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "ledgerctl"
	app.Version = version.Version
	app.Usage = "inspect and edit instrument ledgers"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "dir",
			Value:       cfg.Ledger.Dir,
			Usage:       "the ledger directory",
			EnvVars:     []string{"LEDGER_DIR"},
			Destination: &ledgerDir,
		},
		&cli.StringFlag{
			Name:        "archive",
			Value:       cfg.Ledger.ArchiveSubdir,
			Usage:       "the archive subdirectory of the ledger directory",
			Destination: &archiveSubdir,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "warn",
			Usage:       "the log level written to stderr",
			Destination: &logLevel,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print results as JSON",
			Destination: &jsonOut,
		},
	}
	app.Commands = []*cli.Command{
		positionsCommand,
		positionCommand,
		addCommand,
		removeLotCommand,
		importCommand,
		fingerprintCommand,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLedger() *service.Ledger {
	log := logger.New(logger.Config{Level: logLevel, Pretty: true})
	return service.NewLedger(ledgerDir, archiveSubdir, 4, log)
}

func jsonOutput(in any) error {
	j, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(j))
	return nil
}

var positionsCommand = &cli.Command{
	Name:   "positions",
	Usage:  "summarizes every instrument",
	Action: listPositions,
}

func listPositions(c *cli.Context) error {
	summaries, err := newLedger().Positions.ListPositions(c.Context)
	if err != nil {
		return err
	}
	if jsonOut {
		return jsonOutput(summaries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tCLASS\tQTY\tAVG COST\tINVESTED\tREALISED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.2f\t%.2f\t%.2f\n",
			s.Key, s.Name, s.Class, s.OpenQuantity, s.AverageCost, s.InvestedCost, s.RealisedGain)
	}
	return w.Flush()
}

var positionCommand = &cli.Command{
	Name:      "position",
	Usage:     "lists the open and closed lots of an instrument",
	ArgsUsage: "<key>",
	Action:    showPosition,
}

func showPosition(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	pos, err := newLedger().Positions.GetPosition(c.Args().First())
	if err != nil {
		return err
	}
	if jsonOut {
		return jsonOutput(pos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s (%s)\n\nOPEN LOT\tDATE\tPRICE\tQTY\tREMAINING\n", pos.Instrument.Name, pos.Instrument.Key)
	for _, l := range pos.OpenLots {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%g\t%g\n", l.ID, l.Date.Format("2006-01-02"), l.Price, l.OriginalQuantity, l.RemainingQuantity)
	}
	fmt.Fprintln(w, "\nCLOSED LOT\tBOUGHT\tSOLD\tQTY\tGAIN\tSOURCE")
	for _, l := range pos.ClosedLots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.2f\t%s\n", l.ID, l.BuyDate.Format("2006-01-02"), l.SellDate.Format("2006-01-02"), l.Quantity, l.Gain, l.Source)
	}
	if len(pos.SkippedFiles) > 0 {
		fmt.Fprintf(w, "\nskipped unreadable files: %s\n", strings.Join(pos.SkippedFiles, ", "))
	}
	return w.Flush()
}

var addCommand = &cli.Command{
	Name:      "add",
	Usage:     "appends a buy or sell to an instrument's primary ledger",
	ArgsUsage: "<key>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "the trade date, e.g. 2024-03-15 or 15-03-2024", Required: true},
		&cli.StringFlag{Name: "action", Usage: "Buy or Sell", Required: true},
		&cli.Float64Flag{Name: "quantity", Usage: "the number of units", Required: true},
		&cli.Float64Flag{Name: "price", Usage: "the unit price", Required: true},
		&cli.Float64Flag{Name: "cost", Usage: "the total cost, when it differs from quantity x price"},
		&cli.StringFlag{Name: "exchange", Usage: "the exchange (NSE, BSE); defaults to the instrument's"},
		&cli.StringFlag{Name: "remark", Usage: "a free-text remark"},
		&cli.StringFlag{Name: "name", Usage: "the display name, used when creating a new ledger"},
	},
	Action: addEvent,
}

func addEvent(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	date, err := workbook.ParseDate(c.String("date"))
	if err != nil {
		return err
	}
	req := service.AppendRequest{
		Date:     date,
		Action:   model.ParseAction(c.String("action")),
		Quantity: c.Float64("quantity"),
		Price:    c.Float64("price"),
		Exchange: c.String("exchange"),
		Remark:   c.String("remark"),
		Name:     c.String("name"),
	}
	if c.IsSet("cost") {
		cost := c.Float64("cost")
		req.Cost = &cost
	}

	event, err := newLedger().Writer.Append(c.Context, c.Args().First(), req)
	if err != nil {
		return err
	}
	if jsonOut {
		return jsonOutput(event)
	}
	fmt.Printf("%s %g @ %.2f written to row %d of %s\n", event.Action, event.Quantity, event.Price, event.Row, event.File)
	return nil
}

var removeLotCommand = &cli.Command{
	Name:      "remove-lot",
	Usage:     "deletes the buy row backing an open lot",
	ArgsUsage: "<key> <lot id>",
	Action:    removeLot,
}

func removeLot(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.ShowSubcommandHelp(c)
	}
	lot, err := newLedger().Writer.RemoveLot(c.Context, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("removed lot %s (row %d of %s)\n", lot.ID, lot.Row, lot.File)
	return nil
}

var importCommand = &cli.Command{
	Name:      "import",
	Usage:     "appends normalized transaction records from a CSV file",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "allow-duplicates", Usage: "write records even when an identical event exists"},
	},
	Action: importFile,
}

func importFile(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := newLedger().Import.Import(c.Context, f, c.Bool("allow-duplicates"))
	if err != nil {
		return err
	}
	if jsonOut {
		return jsonOutput(result)
	}
	fmt.Printf("imported %d, skipped %d, failed %d\n", result.Imported, len(result.Skipped), len(result.Failed))
	for _, issue := range result.Skipped {
		fmt.Printf("  line %d (%s): skipped: %s\n", issue.Line, issue.Instrument, issue.Reason)
	}
	for _, issue := range result.Failed {
		fmt.Printf("  line %d (%s): failed: %s\n", issue.Line, issue.Instrument, issue.Reason)
	}
	return nil
}

var fingerprintCommand = &cli.Command{
	Name:      "fingerprint",
	Usage:     "counts events matching a candidate event",
	ArgsUsage: "<key>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "date", Required: true},
		&cli.StringFlag{Name: "action", Required: true},
		&cli.Float64Flag{Name: "quantity", Required: true},
		&cli.Float64Flag{Name: "price", Required: true},
	},
	Action: fingerprint,
}

func fingerprint(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	date, err := workbook.ParseDate(c.String("date"))
	if err != nil {
		return err
	}
	check, err := newLedger().Positions.FindDuplicates(
		c.Args().First(), date, model.ParseAction(c.String("action")), c.Float64("quantity"), c.Float64("price"))
	if err != nil {
		return err
	}
	return jsonOutput(check)
}
