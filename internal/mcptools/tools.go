package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

// StateURI は現在の描画情報を公開するリソースのURI
const StateURI = "calculator://state"

// tapeSession はテープ上のセッション名
const tapeSession = "mcp"

// Calculator はMCPクライアントから操作される一台の電卓
type Calculator struct {
	mu      sync.Mutex
	machine *calculator.Machine
	tape    tape.Tape
	debug   bool
}

// NewCalculator は新しい電卓を作成する
func NewCalculator(tp tape.Tape, debug bool) *Calculator {
	return &Calculator{
		machine: calculator.NewMachine(nil),
		tape:    tp,
		debug:   debug,
	}
}

// Register はツールとリソースをMCPサーバーに登録する
func (c *Calculator) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("digit",
		mcp.WithDescription("Append one digit (0-9) or the decimal point to the operand being entered"),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("A single character: 0-9 or '.'"),
		),
	), c.HandleDigit)

	s.AddTool(mcp.NewTool("operator",
		mcp.WithDescription("Choose the pending operator. A complete pending expression is evaluated first"),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("add, subtract, multiply, divide, modulo (or + - * / %)"),
		),
	), c.HandleOperator)

	s.AddTool(mcp.NewTool("equals",
		mcp.WithDescription("Evaluate the pending expression"),
	), c.eventHandler(calculator.EventEquals))

	s.AddTool(mcp.NewTool("clear",
		mcp.WithDescription("Clear every operand and the operator"),
	), c.eventHandler(calculator.EventClear))

	s.AddTool(mcp.NewTool("backspace",
		mcp.WithDescription("Delete the last character of the operand being entered"),
	), c.eventHandler(calculator.EventBackspace))

	s.AddTool(mcp.NewTool("square",
		mcp.WithDescription("Square the displayed operand"),
	), c.eventHandler(calculator.EventSquare))

	s.AddTool(mcp.NewTool("state",
		mcp.WithDescription("Return the current display without changing it"),
	), c.HandleState)

	s.AddTool(mcp.NewTool("tape",
		mcp.WithDescription("Return the most recent completed calculations, newest first"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of entries (default %d)", tape.DefaultLimit)),
		),
	), c.HandleTape)

	s.AddResource(mcp.NewResource(StateURI,
		"Calculator State",
		mcp.WithResourceDescription("The snapshot currently shown on the calculator"),
		mcp.WithMIMEType("application/json"),
	), c.HandleStateResource)
}

// HandleDigit は digit ツールを処理する
func (c *Calculator) HandleDigit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, _ := request.GetArguments()["value"].(string)
	return c.apply(ctx, string(calculator.EventDigit), value)
}

// HandleOperator は operator ツールを処理する
func (c *Calculator) HandleOperator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, _ := request.GetArguments()["kind"].(string)
	return c.apply(ctx, string(calculator.EventOperator), kind)
}

// eventHandler は引数を取らないイベントのツールハンドラーを返す
func (c *Calculator) eventHandler(kind calculator.EventKind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return c.apply(ctx, string(kind), "")
	}
}

// HandleState は state ツールを処理する
func (c *Calculator) HandleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return snapshotResult(c.Snapshot())
}

// HandleTape は tape ツールを処理する
func (c *Calculator) HandleTape(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := tape.DefaultLimit
	if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	entries, err := c.tape.Recent(ctx, tapeSession, limit)
	if err != nil {
		return mcp.NewToolResultError(errors.TapeUnavailable(err).Localize(i18n.GetLocale())), nil
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// HandleStateResource は状態リソースを返す
func (c *Calculator) HandleStateResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Snapshot は現在の描画情報を返す
func (c *Calculator) Snapshot() calculator.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Snapshot()
}

// apply は入力イベントを検証して適用する
func (c *Calculator) apply(ctx context.Context, kind, value string) (*mcp.CallToolResult, error) {
	ev, err := calculator.ParseEvent(kind, value)
	if err != nil {
		friendly := errors.InvalidInput(err, kind, value)
		msg := friendly.Localize(i18n.GetLocale())
		if suggestions := friendly.GetSuggestions(); len(suggestions) > 0 {
			msg += "\n" + strings.Join(suggestions, "\n")
		}
		return mcp.NewToolResultError(msg), nil
	}

	c.mu.Lock()
	snap := c.machine.Apply(ev)
	c.mu.Unlock()

	if snap.Trace != "" {
		entry := tape.Entry{
			Session:    tapeSession,
			Expression: snap.Trace,
			Result:     snap.Display,
			RecordedAt: time.Now(),
		}
		if err := c.tape.Append(ctx, entry); err != nil {
			log.Printf("Warning: failed to record calculation: %v", err)
		}
	}

	if c.debug {
		log.Printf("🧮 %s(%s) -> %q", ev.Kind, ev.Value, snap.Display)
	}
	return snapshotResult(snap)
}

// snapshotResult は描画情報をJSONテキストの結果にする
func snapshotResult(snap calculator.Snapshot) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
