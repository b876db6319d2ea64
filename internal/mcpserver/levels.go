package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/petfeeder/internal/models"
)

const levelsURI = "petfeeder://levels"

// LevelTable renders the level thresholds as a Markdown table.
func LevelTable() string {
	var b strings.Builder
	b.WriteString("# Pet Levels\n\nEvery successful feeding adds 1 XP.\n\n| XP | Level |\n|---:|---|\n")
	for _, l := range models.Levels {
		fmt.Fprintf(&b, "| %d | %s |\n", l.MinExperience, l.Label)
	}
	return b.String()
}

func (s *Server) readLevelsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      levelsURI,
			MIMEType: "text/markdown",
			Text:     LevelTable(),
		},
	}, nil
}
