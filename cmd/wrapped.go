package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"

	"github.com/gavinborne/fizzbuzz/proc"
	"github.com/gavinborne/fizzbuzz/sys"
)

// ===========================
// Command Registration
// ===========================

func registerWrapped() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "wrapped",
		Description:              "Yearly wrapped metrics",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "status",
				Description: "Show how far metrics collection has gotten in this channel",
			},
		},
	}, handleWrapped)

	addHelp("Admin", "/wrapped status", "Latest recorded metrics timestamp for this channel.", "/wrapped status")
}

// ===========================
// Handler
// ===========================

func handleWrapped(event *events.ApplicationCommandInteractionCreate) {
	ctx := context.Background()
	if _, ok := requireGuild(event); !ok {
		return
	}
	if !requireAdmin(ctx, event) {
		return
	}

	subCmd := event.SlashCommandInteractionData().SubCommandName
	if subCmd == nil || *subCmd != "status" {
		return
	}

	year, ok := proc.CollectionYear(time.Now())
	if !ok {
		respond(event, "Metrics collection is outside its yearly window right now.", true)
		return
	}

	latest, found, err := deps.Metrics.LatestTimestamp(ctx, year, event.Channel().ID())
	if err != nil {
		sys.LogMetrics("Failed to query latest timestamp for %d: %v", year, err)
		respond(event, sys.ErrStatsUnavailable, true)
		return
	}
	if !found {
		respond(event, fmt.Sprintf("No messages recorded in this channel for %d yet.", year), true)
		return
	}

	respond(event, fmt.Sprintf("Latest recorded message in this channel for %d: <t:%d:f>", year, latest.Unix()), true)
}
