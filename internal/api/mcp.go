package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions *session.Manager
	Fetcher  RoadmapFetcher
}

// NewMCPServer creates an MCP server with the careerpath tools and resources registered.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"careerpath",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("careerpath recommends careers for a student's questionnaire answers and builds a three-stage roadmap for each."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("recommend_careers",
			mcp.WithDescription("Rank the career catalog against a student profile and return the top 3 matches."),
			mcp.WithString("profile", mcp.Description("Profile JSON with interests, educationLevel, currentClass, stream, subjects, skills, workStyle, location"), mcp.Required()),
		),
		mcpRecommendCareers(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_roadmap",
			mcp.WithDescription("Build a three-stage career roadmap personalised to a student profile."),
			mcp.WithString("career_id", mcp.Description("Career id, e.g. software-engineer"), mcp.Required()),
			mcp.WithString("career_title", mcp.Description("Display title; optional for careers in the catalog")),
			mcp.WithString("profile", mcp.Description("Profile JSON"), mcp.Required()),
		),
		mcpGenerateRoadmap(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"careers://catalog",
			"Career Catalog",
			mcp.WithResourceDescription("Every career the recommender can suggest, in catalog order"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpProfile(req mcp.CallToolRequest) (profile.Profile, *mcp.CallToolResult) {
	raw, err := req.RequireString("profile")
	if err != nil {
		return profile.Profile{}, mcpError("profile is required")
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return profile.Profile{}, mcpError(fmt.Sprintf("invalid profile JSON: %v", err))
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, mcpError(fmt.Sprintf("invalid profile: %v", err))
	}
	return p, nil
}

func mcpRecommendCareers(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, errResult := mcpProfile(req)
		if errResult != nil {
			return errResult, nil
		}

		b, err := json.Marshal(RecommendationsResponse{
			Summary:         p.Summarize(),
			Recommendations: deps.Sessions.Recommend(p),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal recommendations: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGenerateRoadmap(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		careerID, err := req.RequireString("career_id")
		if err != nil {
			return mcpError("career_id is required"), nil
		}
		p, errResult := mcpProfile(req)
		if errResult != nil {
			return errResult, nil
		}
		title, err := careerTitle(deps.Sessions.Catalog(), careerID, req.GetString("career_title", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		b, err := json.Marshal(deps.Fetcher.Fetch(ctx, careerID, title, p))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal roadmap: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Sessions.Catalog().Careers())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
