package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/yungbote/docfill-backend/internal/app"
	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "fillctl",
		Usage: "Fill document placeholders from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "typemap", Usage: "YAML keyword table overriding the built-in one", Sources: cli.EnvVars("FILL_TYPEMAP_PATH")},
		},
		Commands: []*cli.Command{
			inferCmd(),
			validateCmd(),
			runCmd(),
			progressCmd(),
			finalizeCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func typeTable(cmd *cli.Command) (*fulfillment.TypeTable, error) {
	if path := cmd.String("typemap"); path != "" {
		return fulfillment.LoadTypeTable(path)
	}
	return fulfillment.DefaultTypeTable(), nil
}

func inferCmd() *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "Print the expected type for a placeholder name",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context", Usage: "Surrounding document text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("name argument is required")
			}
			table, err := typeTable(cmd)
			if err != nil {
				return err
			}
			t := table.Infer(name, cmd.String("context"))
			fmt.Printf("%s\t(tier %d, %s)\n", t, t.PriorityTier(), t.Label())
			return nil
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Run the local validator on one answer",
		ArgsUsage: "<answer>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Expected type", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			t, ok := fill.ParseExpectedType(cmd.String("type"))
			if !ok {
				return fmt.Errorf("unknown type %q", cmd.String("type"))
			}
			res := fulfillment.NewValidator().Validate(t, strings.Join(cmd.Args().Slice(), " "))
			if !res.OK {
				fmt.Println(errorStyle.Render("invalid:"), res.Hint)
				return cli.Exit("", 2)
			}
			fmt.Println(okStyle.Render("ok:"), res.Normalized)
			return nil
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start or resume an interactive fill-in session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seeds", Usage: "YAML or JSON intake file for a new session"},
			&cli.StringFlag{Name: "session", Usage: "Session id or reference to resume"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			seeds, ident := cmd.String("seeds"), cmd.String("session")
			if (seeds == "") == (ident == "") {
				return fmt.Errorf("exactly one of --seeds or --session is required")
			}
			a, err := app.Open(ctx, logger.Nop())
			if err != nil {
				return err
			}
			defer a.Close()
			svc := a.Services.Fulfillment
			dbc := dbctx.Context{Ctx: ctx}

			var id string
			if seeds != "" {
				in, err := loadSeeds(seeds)
				if err != nil {
					return err
				}
				view, err := svc.CreateSession(dbc, in)
				if err != nil {
					return err
				}
				id = view.Session.ID.String()
				fmt.Printf("created session %d\n", view.Session.Reference)
			} else {
				id = ident
			}
			sid, err := svc.Resolve(dbc, id)
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(newFillModel(ctx, svc, sid)).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(fillModel); ok && m.err != nil {
				return m.err
			}
			return nil
		},
	}
}

func progressCmd() *cli.Command {
	return &cli.Command{
		Name:      "progress",
		Usage:     "Show placeholder status for a session",
		ArgsUsage: "<session>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := app.Open(ctx, logger.Nop())
			if err != nil {
				return err
			}
			defer a.Close()
			svc := a.Services.Fulfillment
			dbc := dbctx.Context{Ctx: ctx}
			id, err := svc.Resolve(dbc, cmd.Args().First())
			if err != nil {
				return err
			}
			list, err := svc.ListPlaceholders(dbc, id)
			if err != nil {
				return err
			}
			p, err := svc.Progress(dbc, id)
			if err != nil {
				return err
			}
			for _, ph := range list {
				fmt.Println(renderPlaceholderLine(ph))
			}
			fmt.Println(progressLine(*p))
			return nil
		},
	}
}

func finalizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "finalize",
		Usage:     "Classify and archive a completed session",
		ArgsUsage: "<session>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := app.Open(ctx, logger.Nop())
			if err != nil {
				return err
			}
			defer a.Close()
			svc := a.Services.Fulfillment
			dbc := dbctx.Context{Ctx: ctx}
			id, err := svc.Resolve(dbc, cmd.Args().First())
			if err != nil {
				return err
			}
			res, err := svc.Finalize(dbc, id)
			if err != nil {
				if pending, ok := fill.DetailsOf(err)["pending"]; ok {
					return fmt.Errorf("%w (pending: %v)", err, pending)
				}
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
