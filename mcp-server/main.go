package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"djconv/config"
	"djconv/database"
	"djconv/export"
	"djconv/liberr"
	"djconv/logging"
)

// Session state shared by the handlers.
var (
	cfg    *config.Config
	dm     *database.DatabaseManager
	logger *zap.Logger
)

func main() {
	var err error
	cfg, err = config.Load(os.Getenv("DJCONV_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr and the optional log file.
	logger, err = logging.InitLogger(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dm, err = database.NewDatabaseManager(cfg.MixxxDB, cfg.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to open Mixxx database", zap.String("path", cfg.MixxxDB), zap.Error(err))
	}
	defer dm.Close()

	if err := server.ServeStdio(newServer()); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

func newServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"djconv-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	exportTool := mcp.NewTool("export_library",
		mcp.WithDescription("Convert the Mixxx library into rekordbox.xml (or a JSON snapshot) in the target directory. Fails without writing anything if a track cannot be represented."),
		mcp.WithString("format",
			mcp.Description("Export format: 'xml' (rekordbox collection) or 'json' (library snapshot). Defaults to the configured format."),
		),
		mcp.WithString("target_directory",
			mcp.Description("Directory to write the export to. Defaults to the configured directory."),
		),
	)

	statsTool := mcp.NewTool("library_stats",
		mcp.WithDescription("Count tracks, cues, playlists and crates in the Mixxx database"),
	)

	searchTool := mcp.NewTool("search_tracks",
		mcp.WithDescription("Search the Mixxx library by title, artist or album"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for in title, artist and album"),
		),
		mcp.WithString("genre", mcp.Description("Only tracks with exactly this genre")),
		mcp.WithString("artist", mcp.Description("Only tracks by exactly this artist")),
		mcp.WithString("playlist", mcp.Description("Only tracks in the playlist with this exact name")),
		mcp.WithString("crate", mcp.Description("Only tracks in the crate with this exact name")),
		mcp.WithNumber("min_rating", mcp.Description("Minimum star rating, 0-5")),
		mcp.WithBoolean("include_deleted", mcp.Description("Include tracks hidden from the Mixxx library")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 15)")),
	)

	mcpServer.AddTool(exportTool, exportHandler)
	mcpServer.AddTool(statsTool, statsHandler)
	mcpServer.AddTool(searchTool, searchHandler)

	statsResource := mcp.NewResource(
		"djconv://library/stats",
		"Library Statistics",
		mcp.WithResourceDescription("Mixxx database statistics"),
		mcp.WithMIMEType("application/json"),
	)
	mcpServer.AddResource(statsResource, statsResourceHandler)

	return mcpServer
}

func exportHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run := *cfg
	run.ExportFormat = request.GetString("format", run.ExportFormat)
	run.TargetDirectory = request.GetString("target_directory", run.TargetDirectory)

	result, err := export.Run(ctx, &run, logger)
	if err != nil {
		var libErr *liberr.Error
		if errors.As(err, &libErr) {
			return mcp.NewToolResultError(fmt.Sprintf("Export aborted, nothing was written: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Export failed: %v", err)), nil
	}

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal export result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func statsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statsJSON, err := libraryStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(statsJSON), nil
}

func searchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid query parameter: %v", err)), nil
	}

	filters := &database.SearchFilters{
		Genre:          request.GetString("genre", ""),
		Artist:         request.GetString("artist", ""),
		Playlist:       request.GetString("playlist", ""),
		Crate:          request.GetString("crate", ""),
		MinRating:      request.GetInt("min_rating", 0),
		IncludeDeleted: request.GetBool("include_deleted", false),
		Limit:          request.GetInt("limit", database.DefaultSearchLimit),
	}

	tracks, err := dm.SearchTracks(ctx, query, filters)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	if len(tracks) == 0 {
		return mcp.NewToolResultText("No tracks found matching the query."), nil
	}

	result, err := json.MarshalIndent(tracks, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func statsResourceHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	statsJSON, err := libraryStats(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     statsJSON,
		},
	}, nil
}

func libraryStats(ctx context.Context) (string, error) {
	stats, err := dm.GetStats(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get library stats: %w", err)
	}
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal library stats: %w", err)
	}
	return string(statsJSON), nil
}
