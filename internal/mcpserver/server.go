// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the feeder operations as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/petservice"
	"github.com/starford/petfeeder/internal/scheduler"
)

// Server wraps the MCP server with the feeder tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *petservice.Service
	loc   *time.Location
	clock clockwork.Clock
}

// New creates an MCP server with every feeder tool registered. loc is the
// scheduler timezone used to describe upcoming feedings.
func New(svc *petservice.Service, loc *time.Location, version string) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{svc: svc, loc: loc, clock: clockwork.NewRealClock()}

	s.mcp = server.NewMCPServer(
		"petfeeder",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_pets",
		mcp.WithDescription("List all pets with their feed count, experience and level."),
	), s.listPets)

	s.mcp.AddTool(mcp.NewTool("create_pet",
		mcp.WithDescription("Register a new pet."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Pet name")),
		mcp.WithNumber("age", mcp.Description("Age in years (default 0)")),
	), s.createPet)

	s.mcp.AddTool(mcp.NewTool("feed_now",
		mcp.WithDescription("Dispense one portion for the pet immediately. "+
			"Fails when the feeder hardware is busy or unreachable."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
	), s.feedNow)

	s.mcp.AddTool(mcp.NewTool("schedule_feeding",
		mcp.WithDescription("Add a daily feeding time for the pet."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Time of day as HH:MM (24h)")),
	), s.scheduleFeeding)

	s.mcp.AddTool(mcp.NewTool("list_triggers",
		mcp.WithDescription("List the daily feeding times of a pet with the next feeding."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
	), s.listTriggers)

	s.mcp.AddTool(mcp.NewTool("delete_trigger",
		mcp.WithDescription("Remove a daily feeding time. Unknown ids are ignored."),
		mcp.WithNumber("trigger_id", mcp.Required(), mcp.Description("Trigger id")),
	), s.deleteTrigger)

	s.mcp.AddTool(mcp.NewTool("feed_statistics",
		mcp.WithDescription("Count feedings of a pet over a trailing window."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
		mcp.WithString("period", mcp.Description("day, week, month or all (default week)")),
	), s.feedStatistics)

	s.mcp.AddTool(mcp.NewTool("recent_feeds",
		mcp.WithDescription("Show the most recent feedings of a pet."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of feeds (default 10)")),
	), s.recentFeeds)

	s.mcp.AddTool(mcp.NewTool("set_pet_photo",
		mcp.WithDescription("Download a png, jpg or gif from an http(s) URL or a base64 data URI "+
			"and make it the pet's photo."),
		mcp.WithNumber("pet_id", mcp.Required(), mcp.Description("Pet id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
	), s.setPetPhoto)

	s.mcp.AddResource(
		mcp.NewResource(levelsURI, "Pet Levels",
			mcp.WithResourceDescription("Experience thresholds of the pet levels."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLevelsResource,
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

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrHardwareUnavailable):
		return mcp.NewToolResultError("feeder hardware unavailable, try again later: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listPets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pets, err := s.svc.ListPets(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(pets) == 0 {
		return mcp.NewToolResultText("no pets registered"), nil
	}
	var b strings.Builder
	for _, p := range pets {
		fmt.Fprintf(&b, "#%d %s (age %d): %s feeds, %d XP, level %s\n",
			p.ID, p.Name, p.Age, humanize.Comma(p.FeedCount), p.Experience, p.Level)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) createPet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	age := req.GetInt("age", 0)
	pet, err := s.svc.CreatePet(ctx, name, age, "")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(pet), nil
}

func (s *Server) feedNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	petID, err := req.RequireInt("pet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pet, _, err := s.svc.FeedNow(ctx, int64(petID))
	if err != nil {
		return toolError(err), nil
	}
	msg := fmt.Sprintf("fed %s: %s feeds, %d XP, level %s", pet.Name, humanize.Comma(pet.FeedCount), pet.Experience, pet.Level)
	if next, remaining, ok := models.NextLevel(pet.Experience); ok {
		msg += fmt.Sprintf(" (%d XP to %s)", remaining, next)
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) scheduleFeeding(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	petID, err := req.RequireInt("pet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clock, err := req.RequireString("time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tv, err := s.svc.ScheduleAt(ctx, int64(petID), clock)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trigger #%d: daily at %s, next feeding %s",
		tv.ID, tv.Time, humanize.Time(s.nextFire(*tv)))), nil
}

func (s *Server) listTriggers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	petID, err := req.RequireInt("pet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	triggers, err := s.svc.ListTriggers(ctx, int64(petID))
	if err != nil {
		return toolError(err), nil
	}
	if len(triggers) == 0 {
		return mcp.NewToolResultText("no feeding times scheduled"), nil
	}
	lines := make([]string, len(triggers))
	for i, tv := range triggers {
		lines[i] = fmt.Sprintf("#%d %s (next %s)", tv.ID, tv.Time, humanize.Time(s.nextFire(tv)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) deleteTrigger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("trigger_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteTrigger(ctx, int64(id)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trigger #%d removed", id)), nil
}

func (s *Server) feedStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	petID, err := req.RequireInt("pet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	period := req.GetString("period", string(models.PeriodWeek))
	n, err := s.svc.Statistics(ctx, int64(petID), period)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d feedings (%s)", n, strings.ToLower(period))), nil
}

func (s *Server) recentFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	petID, err := req.RequireInt("pet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	feeds, err := s.svc.ListFeeds(ctx, int64(petID), req.GetInt("limit", 10))
	if err != nil {
		return toolError(err), nil
	}
	if len(feeds) == 0 {
		return mcp.NewToolResultText("never fed"), nil
	}
	lines := make([]string, len(feeds))
	for i, f := range feeds {
		lines[i] = fmt.Sprintf("%s (%s, %s)", humanize.Time(f.FedAt), f.FedAt.In(s.loc).Format("2006-01-02 15:04"), f.Source)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// nextFire prefers the armed instant and falls back to computing it, as a
// stdio session has no running scheduler.
func (s *Server) nextFire(tv petservice.TriggerView) time.Time {
	if tv.NextFire != nil {
		return *tv.NextFire
	}
	return scheduler.NextFire(s.clock.Now(), tv.Hour, tv.Minute, s.loc)
}
