package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/matiasinsaurralde/relatorio/internal/pkg/pdf2png"
	"github.com/matiasinsaurralde/relatorio/pkg/cleaner"
	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/matiasinsaurralde/relatorio/pkg/layout"
	"github.com/matiasinsaurralde/relatorio/pkg/mcp"
	"github.com/matiasinsaurralde/relatorio/pkg/photo"
	"github.com/matiasinsaurralde/relatorio/pkg/processor"
	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/matiasinsaurralde/relatorio/pkg/web"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const (
	defaultStorePath  = "data/data.json"
	defaultOutputPath = "output"
)

// App wraps all the components and embeds the urfave CLI app:
type App struct {
	*cli.App
	logger    zerolog.Logger
	cfg       *config.Config
	store     *store.Store
	processor *processor.Processor
}

// Init fills the default paths and builds every component:
func (a *App) Init() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if a.cfg.StorePath == "" {
		a.cfg.StorePath = filepath.Join(cwd, defaultStorePath)
	}
	if a.cfg.OutputPath == "" {
		a.cfg.OutputPath = filepath.Join(cwd, defaultOutputPath)
	}
	if err := os.MkdirAll(a.cfg.OutputPath, 0o755); err != nil {
		return err
	}

	profile := layout.Default()
	if a.cfg.LayoutPath != "" {
		if profile, err = layout.Load(a.cfg.LayoutPath); err != nil {
			return err
		}
		a.logger.Debug().Str("path", a.cfg.LayoutPath).Msg("layout loaded")
	}

	// Init store:
	a.store = store.New(a.cfg.StorePath, a.logger)
	if err := a.store.Init(); err != nil {
		return err
	}

	cl, err := cleaner.New(context.Background(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	preparer := photo.New(a.cfg.MaxPhotoWidth, a.cfg.Workers, pdf2png.Rasterizer{}, a.logger)

	// Init processor:
	a.processor = processor.New(a.cfg, a.store, profile, cl, preparer, a.logger)
	return nil
}

func (a *App) serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv, err := web.New(a.cfg, a.store, a.processor, a.logger)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func (a *App) generate(c *cli.Context) error {
	f, err := os.Open(c.String("relatorio"))
	if err != nil {
		return err
	}
	r, err := report.Decode(f)
	f.Close()
	if err != nil {
		return err
	}
	if c.Bool("limpar") {
		r.Clean = true
	}
	captions := c.StringSlice("legenda")
	for i, path := range c.StringSlice("foto") {
		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		photo, err := report.ReadPhoto(path, caption)
		if err != nil {
			return err
		}
		r.Photos = append(r.Photos, photo)
	}

	// With --saida the document is written there and not stored:
	if out := c.String("saida"); out != "" {
		w, err := os.Create(out)
		if err != nil {
			return err
		}
		result, err := a.processor.Render(c.Context, r, w)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
			return err
		}
		a.printResult(c, result, out)
		return nil
	}

	result, err := a.processor.Generate(c.Context, r)
	if err != nil {
		return err
	}
	a.printResult(c, result, result.Path)
	return nil
}

func (a *App) printResult(c *cli.Context, result *processor.Result, path string) {
	fmt.Fprintf(c.App.Writer, "%s\n", path)
	a.logger.Info().
		Str("id", result.ReportID).
		Int("embedded", result.Embedded).
		Ints("missing", result.Missing).
		Strs("failed", result.Failed).
		Bool("cleaned", result.Cleaned).
		Msg("report ready")
}

func (a *App) list(c *cli.Context) error {
	records := a.store.RetrieveReports()
	for _, r := range records {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.CreatedAt.Format(report.DateLayout+" 15:04"), r.Title, r.Embedded, r.PhotoCount, r.Path)
	}
	a.logger.Debug().Msgf("%d reports", len(records))
	return nil
}

func (a *App) serveMCP(c *cli.Context) error {
	return mcp.New(a.processor, a.store, a.logger).Run()
}

// New takes a configuration and logger and returns app:
func New(cfg *config.Config, logger zerolog.Logger) *App {
	var app App
	app.logger = logger
	app.cfg = cfg
	app.App = &cli.App{
		Name:  "relatorio",
		Usage: "Gerador de relatórios de investigação em .docx",
		// Captions and paths may contain commas, each --foto/--legenda is one value:
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			{
				Name:    "servir",
				Aliases: []string{"s"},
				Usage:   "Servir o formulário web",
				Action:  app.serve,
			},
			{
				Name:    "gerar",
				Aliases: []string{"g"},
				Usage:   "Gerar um relatório a partir de um arquivo JSON e fotos",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "relatorio",
						Aliases:  []string{"r"},
						Usage:    "arquivo JSON com os dados do relatório",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "foto",
						Aliases: []string{"f"},
						Usage:   "foto ou PDF anexado, na ordem dos marcadores [FOTOn]",
					},
					&cli.StringSliceFlag{
						Name:  "legenda",
						Usage: "legenda da foto na mesma posição",
					},
					&cli.BoolFlag{
						Name:  "limpar",
						Usage: "revisar o relato com o LLM configurado",
					},
					&cli.StringFlag{
						Name:    "saida",
						Aliases: []string{"o"},
						Usage:   "escrever o .docx neste caminho sem registrá-lo",
					},
				},
				Action: app.generate,
			},
			{
				Name:    "listar",
				Aliases: []string{"l"},
				Usage:   "Listar os relatórios gerados",
				Action:  app.list,
			},
			{
				Name:    "mcp",
				Aliases: []string{"m"},
				Usage:   "Servir as ferramentas MCP por stdio",
				Action:  app.serveMCP,
			},
		},
	}
	return &app
}
