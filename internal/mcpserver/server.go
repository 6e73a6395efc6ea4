// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes rpgify quests and the dashboard to LLM clients via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/index"
	"github.com/starford/rpgify/internal/questservice"
)

const questFormatURI = "rpgify://quest-format"

// Server wraps the MCP server with rpgify tools.
type Server struct {
	mcp *server.MCPServer
	svc *questservice.Service
}

type listQuestsArgs struct {
	Type     string `json:"type"`
	Class    string `json:"class"`
	Complete *bool  `json:"complete"`
	Limit    int    `json:"limit"`
}

type toggleTaskArgs struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Checked bool   `json:"checked"`
	IfMatch string `json:"if_match"`
}

// New creates a new MCP server with all rpgify tools registered.
func New(svc *questservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"rpgify",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_dashboard",
		mcp.WithDescription("Return the last rendered dashboard: quests and achievements per type, "+
			"experience and level per class, and per-file problems."),
	), s.getDashboard)

	s.mcp.AddTool(mcp.NewTool("render_dashboard",
		mcp.WithDescription("Run a render pass now. Rewrites the complete field of quest notes "+
			"and returns the fresh dashboard."),
	), s.renderDashboard)

	s.mcp.AddTool(mcp.NewTool("list_quests",
		mcp.WithDescription("List indexed quests, optionally filtered by type, class or completion."),
		mcp.WithString("type", mcp.Description("Type value, e.g. Quest or Achievement")),
		mcp.WithString("class", mcp.Description("Class value, e.g. Mage")),
		mcp.WithBoolean("complete", mcp.Description("Only completed (true) or open (false) quests")),
		mcp.WithNumber("limit", mcp.Description("Max results"), mcp.DefaultNumber(50), mcp.Min(1)),
	), s.listQuests)

	s.mcp.AddTool(mcp.NewTool("read_quest",
		mcp.WithDescription("Read one quest note with its tasks, line numbers and checksum."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. Quests/dragon.md)")),
	), s.readQuest)

	s.mcp.AddTool(mcp.NewTool("create_quest",
		mcp.WithDescription("Create a quest or achievement note from the template. "+
			"Read the contract first via get_quest_contract or the "+questFormatURI+" resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Type value, e.g. Quest or Achievement")),
		mcp.WithString("title", mcp.Description("Title; also names the file when path is empty")),
		mcp.WithString("class", mcp.Description("Class the experience counts toward")),
		mcp.WithNumber("exp", mcp.Description("Experience awarded on completion"), mcp.Min(0)),
		mcp.WithString("complete_by", mcp.Description("Due date, YYYY-MM-DD")),
		mcp.WithString("path", mcp.Description("Explicit relative path ending in .md")),
		mcp.WithArray("tasks", mcp.Description("Task lines, without the checkbox"), mcp.WithStringItems()),
	), s.createQuest)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Check or uncheck one task line. Use the line numbers from read_quest."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line index of the task")),
		mcp.WithBoolean("checked", mcp.Required(), mcp.Description("Desired checkbox state")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_quest; rejects stale edits")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("search_quests",
		mcp.WithDescription("Full-text search through quest titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchQuests)

	s.mcp.AddTool(mcp.NewTool("get_quest_contract",
		mcp.WithDescription("Returns the quest note format contract. "+
			"Call this before creating or editing quests."),
	), s.getQuestContract)

	s.mcp.AddResource(
		mcp.NewResource(questFormatURI, "Quest Format Contract",
			mcp.WithResourceDescription("Front matter keys and task syntax that quest notes follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuestFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encode result", err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error()), nil
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrStaleEdit):
		return mcp.NewToolResultError("note changed since it was read, call read_quest again: " + err.Error()), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) getDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.svc.Dashboard(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(d)
}

func (s *Server) renderDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.svc.Render(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(d)
}

func (s *Server) listQuests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listQuestsArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	quests, total, err := s.svc.ListQuests(ctx, index.QuestFilter{
		Type: args.Type, Class: args.Class, Complete: args.Complete, Limit: args.Limit,
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"quests": quests, "total": total})
}

func (s *Server) readQuest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetQuest(ctx, path)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(d)
}

func (s *Server) createQuest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in questservice.CreateQuestInput
	if err := req.BindArguments(&in); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	d, err := s.svc.CreateQuest(ctx, in)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(d)
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args toggleTaskArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.Path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	res, err := s.svc.ToggleTask(ctx, args.Path, args.Line, args.Checked, args.IfMatch)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) searchQuests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(results)
}

func (s *Server) getQuestContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuestFormatContract), nil
}

func (s *Server) readQuestFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      questFormatURI,
			MIMEType: "text/markdown",
			Text:     QuestFormatContract,
		},
	}, nil
}
