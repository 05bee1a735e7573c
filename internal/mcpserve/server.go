// Package mcpserve exposes SQL conversion as a Model Context Protocol tool,
// over stdio or streamable HTTP.
package mcpserve

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/samsaffron/sql2pyspark/internal/session"
)

// ToolName is the name clients call.
const ToolName = "convert_sql"

var inputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sql": map[string]any{
			"type":        "string",
			"description": "The SQL query to convert",
		},
	},
	"required": []string{"sql"},
}

type Options struct {
	// NewSession builds a fresh conversation for every tool call.
	NewSession func() *session.Session
	Version    string
	// Token, when set, is required as a bearer token on HTTP requests.
	Token  string
	Logger zerolog.Logger
}

type convertArgs struct {
	SQL string `json:"sql"`
}

// NewServer returns an MCP server with the conversion tool registered.
func NewServer(opts Options) *mcp.Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sql2pyspark",
		Version: version,
	}, nil)

	server.AddTool(&mcp.Tool{
		Name:        ToolName,
		Description: "Convert a SQL query into equivalent PySpark DataFrame code.",
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsJSON, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return errorResult(fmt.Sprintf("Error reading arguments: %v", err)), nil
		}
		var args convertArgs
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return errorResult(fmt.Sprintf("Error reading arguments: %v", err)), nil
		}

		start := time.Now()
		reply, err := opts.NewSession().Submit(ctx, args.SQL, nil)
		if errors.Is(err, session.ErrEmptyPrompt) {
			return errorResult("sql is required"), nil
		}
		if err != nil {
			opts.Logger.Error().Err(err).Msg("conversion failed")
			return errorResult(fmt.Sprintf("Error converting query: %v", err)), nil
		}
		opts.Logger.Info().Int("chars", len(reply)).Dur("elapsed", time.Since(start)).Msg("tool call complete")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: reply},
			},
		}, nil
	})
	return server
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// RunStdio serves one client on stdin/stdout until it disconnects or ctx
// ends.
func RunStdio(ctx context.Context, opts Options) error {
	if err := NewServer(opts).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Handler serves the tool over streamable HTTP at /mcp.
func Handler(opts Options) http.Handler {
	server := NewServer(opts)
	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp", authMiddleware(opts.Token, mcpHandler))
	return mux
}

// ListenAndServe runs Handler on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, opts Options) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: Handler(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	opts.Logger.Info().Str("addr", ln.Addr().String()).Msg("mcp server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func authMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
