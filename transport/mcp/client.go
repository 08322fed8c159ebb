package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/service"
)

const serverVersion = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// APIError is a non-2xx response from the REST API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Crucible Route Solver",
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Crucible Route Solver - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Find the cheapest route for a crucible across a grid of digit costs, from the
top-left cell to the bottom-right cell, under a movement regime.

AVAILABLE TOOLS:
- create_session: Load a catalogue puzzle or an inline layout
- list_sessions: List active sessions
- get_session: Session details and cached results
- solve: Solve one regime, or all of them
- describe_cell: Cost of one cell and the solved routes through it
- list_puzzles: Puzzles in the catalogue
- list_regimes: Movement regimes and their run limits
- solver_instructions: Rules of the puzzle`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a solver session from a catalogue puzzle, or from an inline layout of digit rows",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"puzzle_id": map[string]any{
					"type":        "string",
					"description": "Catalogue puzzle to load (optional, defaults to the server default)",
				},
				"layout": map[string]any{
					"type":        "string",
					"description": "Inline grid: rows of digits separated by newlines. Overrides puzzle_id.",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Name for an inline puzzle",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active solver sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session, including cached results",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Solving
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve",
		Description: "Find the minimal heat loss route under a regime. Omit regime to solve every regime.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"regime": map[string]any{
					"type":        "string",
					"enum":        []string{engine.RegimeCapped, engine.RegimeMinimumCommit, "all"},
					"description": "Movement regime",
				},
				"show_path": map[string]any{
					"type":        "boolean",
					"description": "Include the grid with the route drawn over it",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSolve)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the cost of one cell and where each solved route passes through it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"x": map[string]any{
					"type":        "integer",
					"description": "X coordinate (column) of the cell (0-based)",
				},
				"y": map[string]any{
					"type":        "integer",
					"description": "Y coordinate (row) of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Catalogue
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List puzzles available in the catalogue",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_regimes",
		Description: "List movement regimes and their run-length limits",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListRegimes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_instructions",
		Description: "Get the rules of the crucible routing puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Handler serves single JSON-RPC messages over HTTP POST
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("API error: %d", resp.StatusCode)}

		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		if result != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			json.Unmarshal(data, result)
		}
		return apiErr
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID string, rest ...string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + strings.Join(rest, "")
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]any{}
	if layout := strings.TrimSpace(request.GetString("layout", "")); layout != "" {
		rows := strings.Split(strings.ReplaceAll(layout, "\r\n", "\n"), "\n")
		body["layout"] = rows
		if name := request.GetString("name", ""); name != "" {
			body["name"] = name
		}
	} else if puzzleID := request.GetString("puzzle_id", ""); puzzleID != "" {
		body["puzzle_id"] = puzzleID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Puzzle: %s, %dx%d, Created: %s)\n",
			s.ID, s.PuzzleID, s.Width, s.Height, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	regime := request.GetString("regime", "")
	showPath := request.GetBool("show_path", false)

	path := sessionPath(sessionID, "/solve")
	if regime == "" || regime == "all" {
		var response struct {
			Results []*service.SolveResult `json:"results"`
		}
		if err := c.apiCall(ctx, http.MethodPost, path, map[string]string{}, &response); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var b strings.Builder
		for _, r := range response.Results {
			b.WriteString(formatSolveResult(r, showPath))
			b.WriteString("\n")
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	var response struct {
		service.SolveResult
		Result *service.SolveResult `json:"result,omitempty"`
	}
	err = c.apiCall(ctx, http.MethodPost, path, map[string]string{"regime": regime}, &response)
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity && response.Result != nil:
		// An unreachable end is an answer, not a tool failure
		return mcp.NewToolResultText(formatSolveResult(response.Result, false)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSolveResult(&response.SolveResult, showPath)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, errX := request.RequireInt("x")
	y, errY := request.RequireInt("y")
	if errX != nil || errY != nil {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var cell service.CellInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, fmt.Sprintf("/cells/%d/%d", x, y)), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellInfo(&cell)), nil
}

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var puzzles []service.PuzzleInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/puzzles", nil, &puzzles); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Puzzles (%d):\n\n", len(puzzles))
	for _, p := range puzzles {
		fmt.Fprintf(&b, "- %s: %s (%dx%d)", p.PuzzleID, p.Name, p.Width, p.Height)
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListRegimes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var regimes []engine.Regime
	if err := c.apiCall(ctx, http.MethodGet, "/api/regimes", nil, &regimes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Movement Regimes:\n\n")
	for _, r := range regimes {
		fmt.Fprintf(&b, "- %s (runs %d to %d): %s\n", r.Name, r.MinRun, r.MaxRun, r.Description)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `CRUCIBLE ROUTING RULES

GRID:
Each cell holds a digit 0-9: the heat lost when the crucible enters it.
The start cell's own cost is never paid. Coordinates are (x,y), 0-based,
x to the right and y downwards.

MOVEMENT:
The crucible starts on the top-left cell and must reach the bottom-right
cell. Each step moves one cell up, down, left or right. It can never
reverse direction in place.

REGIMES:
- capped: at most 3 consecutive steps in one direction, then it must turn.
- minimum-commit: at least 4 steps in a direction before it may turn, and
  at most 10.

A route's cost is the sum of the costs of every cell entered. The solver
returns the minimal cost, the route, and how many search states it expanded.
When no route exists under a regime the end is reported unreachable.

WORKFLOW:
1. list_puzzles, then create_session with a puzzle_id (or an inline layout)
2. solve with a regime, or without one to solve every regime
3. describe_cell to inspect where a route passes`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Puzzle: %s (%s)\n", session.Name, session.PuzzleID)
	fmt.Fprintf(&b, "Grid: %dx%d, cell costs %d-%d\n", session.Width, session.Height, session.MinCellCost, session.MaxCellCost)
	fmt.Fprintf(&b, "Start: %s  End: %s\n", session.Start, session.End)
	if len(session.Results) > 0 {
		b.WriteString("\nResults:\n")
		for _, r := range session.Results {
			b.WriteString("  ")
			b.WriteString(solveSummary(r))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func solveSummary(r *service.SolveResult) string {
	if !r.Reachable {
		return fmt.Sprintf("%s: unreachable", r.Regime)
	}
	line := fmt.Sprintf("%s: cost %d, %d moves, %d states expanded", r.Regime, r.Cost, r.Moves, r.Expanded)
	if r.Cached {
		line += " (cached)"
	}
	return line
}

func formatSolveResult(r *service.SolveResult, showPath bool) string {
	var b strings.Builder
	b.WriteString(solveSummary(r))
	b.WriteString("\n")
	if showPath && r.Reachable && len(r.Overlay) > 0 {
		for _, row := range r.Overlay {
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatCellInfo(cell *service.CellInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s: cost %d", cell.Cell, cell.Cost)
	switch {
	case cell.IsStart && cell.IsEnd:
		b.WriteString(" [start, end]")
	case cell.IsStart:
		b.WriteString(" [start]")
	case cell.IsEnd:
		b.WriteString(" [end]")
	}
	b.WriteString("\n")
	if len(cell.Visits) == 0 {
		b.WriteString("No solved route enters this cell.\n")
		return b.String()
	}
	for _, v := range cell.Visits {
		fmt.Fprintf(&b, "- %s route enters at step %d heading %s\n", v.Regime, v.Step, v.Heading)
	}
	return b.String()
}
