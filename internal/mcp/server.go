package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

const defaultRequestTimeout = 5 * time.Second

type ServerConfig struct {
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Server wraps the SDK server with the transports trendbot exposes.
type Server struct {
	*sdkmcp.Server
}

// NewServer builds an MCP server exposing trend tools and resources. Any of
// trends, assets or recomputer may be nil; the matching tools then fail with
// an unavailable error.
func NewServer(tracer trace.Tracer, trends TrendReader, assets AssetLister, recomputer Recomputer, cfg ServerConfig) *Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mcp")

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "trendbot-mcp",
		Version: "1.0.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "Use these tools to inspect asset trends and their indicator windows, or to force a recompute.",
		Logger:       slog.New(zapslog.NewHandler(logger.Core())),
	})

	// Each call wraps the previous chain: log, then span, then deadline.
	srv.AddReceivingMiddleware(withDeadline(timeout))
	if tracer != nil {
		srv.AddReceivingMiddleware(withSpan(tracer))
	}
	srv.AddReceivingMiddleware(withRequestLog(logger))

	registerTools(srv, trends, assets, recomputer)
	registerResources(srv, trends, assets)
	return &Server{Server: srv}
}

// HTTPHandler serves the MCP streamable HTTP transport; every session shares
// this server.
func (s *Server) HTTPHandler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.Server
	}, &sdkmcp.StreamableHTTPOptions{})
}

func withDeadline(timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, method, req)
		}
	}
}

func withSpan(tracer trace.Tracer) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			name, target := describe(method, req)
			ctx, span := tracer.Start(ctx, name)
			defer span.End()
			span.SetAttributes(attribute.String("mcp.method", method))
			if target != "" {
				span.SetAttributes(attribute.String("mcp.target", target))
			}

			res, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			if call, ok := res.(*sdkmcp.CallToolResult); ok && call != nil && call.IsError {
				span.SetStatus(codes.Error, "tool returned an error")
			}
			return res, err
		}
	}
}

func withRequestLog(logger *zap.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			res, err := next(ctx, method, req)
			_, target := describe(method, req)
			fields := []zap.Field{zap.String("method", method), zap.Duration("duration", time.Since(start))}
			if target != "" {
				fields = append(fields, zap.String("target", target))
			}
			if err != nil {
				logger.Warn("mcp request failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("mcp request", fields...)
			}
			return res, err
		}
	}
}

// describe returns the span name for a request and the tool name or resource
// URI it targets, if any.
func describe(method string, req sdkmcp.Request) (string, string) {
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		if tool := strings.TrimSpace(r.Params.Name); tool != "" {
			return "mcp.tool." + tool, tool
		}
		return "mcp.tool.call", ""
	case *sdkmcp.ReadResourceRequest:
		return "mcp.resource.read", strings.TrimSpace(r.Params.URI)
	}
	return "mcp." + strings.ReplaceAll(method, "/", "."), ""
}
