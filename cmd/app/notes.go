package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/notas/internal"
	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/markdown"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/notes"
)

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage notes through the configured backend",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every note",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					all, err := s.Notes(ctx)
					if err != nil {
						return err
					}
					return printNotes(cmd, all)
				}),
			},
			{
				Name:      "show",
				Usage:     "Print one note as Markdown",
				ArgsUsage: "<id>",
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					id, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					n, err := s.GetByID(ctx, id)
					if err != nil {
						return err
					}
					data, err := markdown.Render(n)
					if err != nil {
						return err
					}
					_, err = cmd.Root().Writer.Write(data)
					return err
				}),
			},
			{
				Name:  "add",
				Usage: "Create a note",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Note title"},
					&cli.StringFlag{Name: "content", Aliases: []string{"m"}, Usage: "Note body; \"-\" reads stdin"},
				},
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					content, err := contentFlag(cmd)
					if err != nil {
						return err
					}
					n, err := s.Create(ctx, models.CreateNoteInput{Title: cmd.String("title"), Content: content})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, n.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "Change the title and/or content of a note",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
					&cli.StringFlag{Name: "content", Aliases: []string{"m"}, Usage: "New body; \"-\" reads stdin"},
				},
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					id, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					var in models.UpdateNoteInput
					if cmd.IsSet("title") {
						title := cmd.String("title")
						in.Title = &title
					}
					if cmd.IsSet("content") {
						content, err := contentFlag(cmd)
						if err != nil {
							return err
						}
						in.Content = &content
					}
					if in.Title == nil && in.Content == nil {
						return errors.New("nothing to change: pass --title and/or --content")
					}
					n, err := s.Update(ctx, id, in)
					if err != nil {
						return err
					}
					return printNotes(cmd, []models.Note{n})
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete a note",
				ArgsUsage: "<id>",
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					id, err := requireArg(cmd, "id")
					if err != nil {
						return err
					}
					deleted, err := s.Delete(ctx, id)
					if err != nil {
						return err
					}
					if !deleted {
						return fmt.Errorf("%s: %w", id, apperr.ErrNotFound)
					}
					return nil
				}),
			},
			{
				Name:      "search",
				Usage:     "Find notes whose title or content contains the query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					if err := s.LoadAll(ctx); err != nil {
						return err
					}
					found, err := s.Search(ctx, strings.Join(cmd.Args().Slice(), " "))
					if err != nil {
						return err
					}
					return printNotes(cmd, found)
				}),
			},
			{
				Name:      "export",
				Usage:     "Write every note as a Markdown file into a directory",
				ArgsUsage: "<dir>",
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					dir, err := requireArg(cmd, "dir")
					if err != nil {
						return err
					}
					all, err := s.Notes(ctx)
					if err != nil {
						return err
					}
					return exportNotes(dir, all, cmd.Root().Writer)
				}),
			},
			{
				Name:      "import",
				Usage:     "Create notes from Markdown files",
				ArgsUsage: "<file|dir>...",
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					if cmd.NArg() == 0 {
						return errors.New("missing argument: <file|dir>")
					}
					return importNotes(ctx, s, cmd.Args().Slice(), cmd.Root().Writer)
				}),
			},
			{
				Name:  "clear",
				Usage: "Delete every note (local backend only)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm deleting everything"},
				},
				Action: withStore(func(ctx context.Context, cmd *cli.Command, s *notes.Store) error {
					if !cmd.Bool("yes") {
						return errors.New("refusing to clear without --yes")
					}
					return s.ClearAll(ctx)
				}),
			},
		},
	}
}

type storeAction func(ctx context.Context, cmd *cli.Command, s *notes.Store) error

// withStore opens the configured store for the duration of one command. Logs
// go to stderr so stdout stays clean for output.
func withStore(fn storeAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

		s, closeFn, err := internal.OpenStore(cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := fn(ctx, cmd, s); err != nil {
			return cliError(err)
		}
		return nil
	}
}

// cliError keeps storage and transport causes out of the terminal; they are
// already logged.
func cliError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return err
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrUnavailable):
		return errors.New(apperr.UserMessage(err))
	default:
		return err
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().First())
	if v == "" {
		return "", fmt.Errorf("missing argument: <%s>", name)
	}
	return v, nil
}

func contentFlag(cmd *cli.Command) (string, error) {
	v := cmd.String("content")
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func printNotes(cmd *cli.Command, list []models.Note) error {
	w := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	for _, n := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.ID, n.Title, n.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func exportNotes(dir string, list []models.Note, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, n := range list {
		data, err := markdown.Render(n)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, markdown.FileName(n)), data, 0o644); err != nil {
			return fmt.Errorf("export %s: %w", n.ID, err)
		}
	}
	fmt.Fprintf(out, "exported %d notes to %s\n", len(list), dir)
	return nil
}

// importNotes creates one note per Markdown file. Directories are scanned
// (not recursively) for *.md files. Files that fail to parse or validate are
// reported and skipped.
func importNotes(ctx context.Context, s *notes.Store, paths []string, out io.Writer) error {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*"+markdown.Ext))
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}

	created, skipped := 0, 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		doc, err := markdown.Parse(data)
		if err != nil {
			fmt.Fprintf(out, "skip %s: %v\n", f, err)
			skipped++
			continue
		}
		if _, err := s.Create(ctx, doc.Input()); err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				fmt.Fprintf(out, "skip %s: %s\n", f, apperr.UserMessage(err))
				skipped++
				continue
			}
			return err
		}
		created++
	}
	fmt.Fprintf(out, "imported %d notes, skipped %d\n", created, skipped)
	return nil
}
