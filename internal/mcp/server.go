// Package mcp exposes cruising and the stored dependency graph as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/display"
	"github.com/zheng/cruiser/internal/export"
	"github.com/zheng/cruiser/internal/impact"
	"github.com/zheng/cruiser/internal/storage"
)

const defaultLimit = 50

// CruiseFunc cruises paths and stores the result.
type CruiseFunc func(ctx context.Context, paths []string) (*cruise.Result, error)

// Server serves the cruiser tools
type Server struct {
	db        *storage.DB
	cruise    CruiseFunc
	mcpServer *mcp.Server
}

// Tool arguments

type CruiseArgs struct {
	Paths []string `json:"paths,omitempty" jsonschema:"要分析的文件或目录，默认当前目录"`
}

type ModuleArgs struct {
	Module string `json:"module" jsonschema:"模块路径（支持模糊匹配）"`
	Depth  int    `json:"depth,omitempty" jsonschema:"递归查询深度，0表示无限"`
	Limit  int    `json:"limit,omitempty" jsonschema:"最多返回的模块数量，默认 50"`
}

type ImpactArgs struct {
	Module          string `json:"module" jsonschema:"要分析的模块路径（支持模糊匹配）"`
	UpstreamDepth   int    `json:"upstream_depth,omitempty" jsonschema:"依赖者递归深度，0表示无限"`
	DownstreamDepth int    `json:"downstream_depth,omitempty" jsonschema:"依赖递归深度，0表示无限"`
	Limit           int    `json:"limit,omitempty" jsonschema:"每个分类最多返回的模块数量，默认 50"`
}

type SearchArgs struct {
	Pattern string `json:"pattern" jsonschema:"搜索模式（模块路径的一部分）"`
	Limit   int    `json:"limit,omitempty" jsonschema:"最多返回的模块数量，默认 50"`
}

type ListArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"最多返回的依赖数量，默认 50"`
}

// NewServer creates a new MCP server. run may be nil, in which case the
// cruise tool is not offered.
func NewServer(db *storage.DB, run CruiseFunc, version string) *Server {
	s := &Server{
		db:     db,
		cruise: run,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "cruiser",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves requests on stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying server, for use with other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) registerTools() {
	if s.cruise != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "cruise",
			Description: "分析指定路径的依赖关系并写入数据库，返回统计与违规规则",
		}, func(ctx context.Context, req *mcp.CallToolRequest, args CruiseArgs) (*mcp.CallToolResult, any, error) {
			return result(s.toolCruise(ctx, args)), nil, nil
		})
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "impact",
		Description: "分析模块变更的影响范围，返回依赖该模块的上游模块和该模块依赖的下游模块",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ImpactArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolImpact(args)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "dependents",
		Description: "查询依赖指定模块的所有上游模块",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ModuleArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolWalk(args, s.db.GetUpstream, "依赖者")), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "dependencies",
		Description: "查询指定模块依赖的所有下游模块",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ModuleArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolWalk(args, s.db.GetDownstream, "依赖")), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search",
		Description: "搜索模块，支持模糊匹配",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolSearch(args)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "cycles",
		Description: "列出所有循环依赖",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolList(args, s.db.GetCircularDependencies, "循环依赖", false)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "violations",
		Description: "列出所有违反规则的依赖",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
		return result(s.toolList(args, s.db.GetViolations, "违规依赖", true)), nil, nil
	})
}

func result(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func (s *Server) toolCruise(ctx context.Context, args CruiseArgs) (string, bool) {
	paths := args.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	res, err := s.cruise(ctx, paths)
	if err != nil {
		return fmt.Sprintf("分析失败: %v", err), true
	}

	var sb strings.Builder
	if err := export.NewExporter("").Err(&sb, res); err != nil {
		return err.Error(), true
	}
	return strings.TrimSpace(sb.String()), false
}

func (s *Server) toolImpact(args ImpactArgs) (string, bool) {
	if args.Module == "" {
		return "缺少参数: module", true
	}

	report, err := impact.NewAnalyzer(s.db).AnalyzeImpact(args.Module, args.UpstreamDepth, args.DownstreamDepth)
	if err != nil {
		return notFound(args.Module, err), true
	}

	limit := limitOrDefault(args.Limit)
	report.DirectDependents = truncate(report.DirectDependents, limit)
	report.IndirectDependents = truncate(report.IndirectDependents, limit)
	report.DirectDependencies = truncate(report.DirectDependencies, limit)
	report.IndirectDependencies = truncate(report.IndirectDependencies, limit)
	return report.FormatMarkdown(), false
}

func (s *Server) toolWalk(args ModuleArgs, walk func(string, int) ([]*storage.Module, error), label string) (string, bool) {
	if args.Module == "" {
		return "缺少参数: module", true
	}

	target, err := impact.NewAnalyzer(s.db).Resolve(args.Module)
	if err != nil {
		return notFound(args.Module, err), true
	}

	depth := args.Depth
	if depth < 0 {
		depth = 0
	}

	modules, err := walk(target.Source, depth)
	if err != nil {
		return fmt.Sprintf("查询失败: %v", err), true
	}

	total := len(modules)
	modules = truncate(modules, limitOrDefault(args.Limit))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s 的%s (共 %d 个)\n\n", target.Source, label, total))
	for _, m := range modules {
		line := "- " + m.Source
		if tag := display.Tag(m); tag != "" {
			line += " [" + tag + "]"
		}
		if m.Depth > 1 {
			line += fmt.Sprintf(" (深度 %d)", m.Depth)
		}
		sb.WriteString(line + "\n")
	}
	if total > len(modules) {
		sb.WriteString(fmt.Sprintf("\n... 还有 %d 个未显示\n", total-len(modules)))
	}
	return sb.String(), false
}

func (s *Server) toolSearch(args SearchArgs) (string, bool) {
	if args.Pattern == "" {
		return "缺少参数: pattern", true
	}

	modules, err := s.db.FindModules(args.Pattern)
	if err != nil {
		return fmt.Sprintf("搜索失败: %v", err), true
	}
	if len(modules) == 0 {
		return fmt.Sprintf("未找到匹配 %q 的模块", args.Pattern), false
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("找到 %d 个模块\n\n", len(modules)))
	for _, m := range truncate(modules, limitOrDefault(args.Limit)) {
		sb.WriteString("- " + m.Source + "\n")
	}
	return sb.String(), false
}

func (s *Server) toolList(args ListArgs, list func() ([]*storage.Dependency, error), label string, withRules bool) (string, bool) {
	deps, err := list()
	if err != nil {
		return fmt.Sprintf("查询失败: %v", err), true
	}
	if len(deps) == 0 {
		return fmt.Sprintf("没有%s", label), false
	}

	limit := limitOrDefault(args.Limit)
	shown := deps
	if len(shown) > limit {
		shown = shown[:limit]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (共 %d 条)\n\n", label, len(deps)))
	sb.WriteString(display.FormatDependencies(shown))
	if withRules {
		sb.WriteString("\n" + display.FormatViolations(shown))
	}
	return sb.String(), false
}

func truncate(modules []*storage.Module, limit int) []*storage.Module {
	if len(modules) > limit {
		return modules[:limit]
	}
	return modules
}

func notFound(module string, err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("未找到模块: %s", module)
	}
	return err.Error()
}
