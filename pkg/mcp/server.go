// Package mcp exposes report generation as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/matiasinsaurralde/relatorio/pkg/processor"
	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/rs/zerolog"
)

const serverName = "relatorio"

// Version is reported to MCP clients:
var Version = "dev"

// Server represents the MCP server instance:
type Server struct {
	processor *processor.Processor
	store     *store.Store
	logger    zerolog.Logger
	mcpServer *server.MCPServer
}

// New creates the MCP server and registers its tools:
func New(processor *processor.Processor, store *store.Store, logger zerolog.Logger) *Server {
	s := &Server{
		processor: processor,
		store:     store,
		logger:    logger,
		mcpServer: server.NewMCPServer(
			serverName,
			Version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	generateTool := mcp.NewTool(
		"report_generate",
		mcp.WithDescription("Generate an investigation report (.docx) from a JSON body and evidence files. "+
			"The narrative may place photos with [FOTOn] markers, n being the position in the photos list starting at 1."),
		mcp.WithString("report",
			mcp.Required(),
			mcp.Description(`Report as JSON: {"case":{"title":..,"opj":..,"number":..,"nature":..,"location":..,"unit":..,"date":..},`+
				`"investigator":..,"subjects":[{"role":"suspeito|testemunha|vitima|outro","name":..}],"narrative":..,`+
				`"signatories":[{"name":..,"role":..,"registry":..}],"clean":false}`),
		),
		mcp.WithArray("photos",
			mcp.Description("Paths of JPEG, PNG or PDF evidence files, in marker order"),
		),
		mcp.WithArray("captions",
			mcp.Description("Optional captions, aligned with photos"),
		),
	)
	s.mcpServer.AddTool(generateTool, s.handleGenerate)

	listTool := mcp.NewTool(
		"report_list",
		mcp.WithDescription("List the generated reports, newest first"),
	)
	s.mcpServer.AddTool(listTool, s.handleList)
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := request.RequireString("report")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := report.Decode(strings.NewReader(body))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	paths := stringList(args["photos"])
	captions := stringList(args["captions"])
	for i, path := range paths {
		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		photo, err := report.ReadPhoto(path, caption)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		r.Photos = append(r.Photos, photo)
	}

	result, err := s.processor.Generate(ctx, r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("report_generate failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.store.RetrieveReports()
	if len(records) == 0 {
		return mcp.NewToolResultText("No reports generated yet"), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d report(s):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "- %s | %s | %s | %d/%d photos | %s\n",
			r.ID, r.CreatedAt.Format(report.DateLayout+" 15:04"), r.Title, r.Embedded, r.PhotoCount, r.Path)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatResult(r *processor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report generated: %s\n", r.Path)
	fmt.Fprintf(&b, "ID: %s\n", r.ReportID)
	fmt.Fprintf(&b, "File name: %s\n", r.FileName)
	fmt.Fprintf(&b, "Photos embedded: %d\n", r.Embedded)
	if len(r.Missing) > 0 {
		missing := make([]string, 0, len(r.Missing))
		for _, n := range r.Missing {
			missing = append(missing, fmt.Sprintf("[FOTO%d]", n))
		}
		fmt.Fprintf(&b, "Markers without a photo: %s\n", strings.Join(missing, ", "))
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "Photos that could not be embedded: %s\n", strings.Join(r.Failed, ", "))
	}
	if r.Cleaned {
		b.WriteString("Narrative cleaned up\n")
	}
	return b.String()
}

// stringList reads a JSON array argument, non string items are skipped:
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Run serves the tools on stdin/stdout until the client disconnects:
func (s *Server) Run() error {
	s.logger.Debug().Msg("starting MCP server in stdio mode")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
