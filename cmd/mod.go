package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/omit"
	"github.com/sho0pi/naturaltime"

	"github.com/gavinborne/fizzbuzz/sys"
)

// maxTimeout is Discord's communication timeout ceiling.
const maxTimeout = 28 * 24 * time.Hour

var modParser *naturaltime.Parser

// ===========================
// Command Registration
// ===========================

func registerMod() {
	var err error
	modParser, err = naturaltime.New()
	if err != nil {
		sys.LogFatal("Failed to initialize naturaltime parser: %v", err)
	}

	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "ban",
		Description:              "Ban a user from the server",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionUser{
				Name:        "user",
				Description: "The user to ban",
				Required:    true,
			},
			discord.ApplicationCommandOptionString{
				Name:        "reason",
				Description: "Reason for the ban",
				Required:    false,
			},
			discord.ApplicationCommandOptionInt{
				Name:        "delete_days",
				Description: "Days of messages to delete (0-7)",
				Required:    false,
				MinValue:    intPtr(0),
				MaxValue:    intPtr(7),
			},
		},
	}, handleBan)

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "timeout",
		Description:              "Manage user timeouts",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set",
				Description: "Time a user out",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "The user to time out",
						Required:    true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "duration",
						Description: "How long, e.g. '10 minutes', '2 hours', '1 day'",
						Required:    true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "reason",
						Description: "Reason for the timeout",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a user's timeout",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "The user to release",
						Required:    true,
					},
				},
			},
		},
	}, handleTimeout)

	addHelp("Moderation", "/ban", "Ban a user, optionally deleting recent messages.", "/ban user:@someone [reason:text] [delete_days:1]")
	addHelp("Moderation", "/timeout set", "Time a user out for a natural-language duration.", "/timeout set user:@someone duration:2 hours")
	addHelp("Moderation", "/timeout remove", "Lift a user's timeout early.", "/timeout remove user:@someone")
}

// ===========================
// Handlers
// ===========================

func handleBan(event *events.ApplicationCommandInteractionCreate) {
	ctx := context.Background()
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}
	if !requireAdmin(ctx, event) {
		return
	}

	data := event.SlashCommandInteractionData()
	userID := data.Snowflake("user")
	if userID == event.User().ID {
		respond(event, "You can't ban yourself!", true)
		return
	}

	deleteDays := 0
	if d, ok := data.OptInt("delete_days"); ok {
		deleteDays = d
	}
	reason := ""
	if r, ok := data.OptString("reason"); ok {
		reason = r
	}

	err := event.Client().Rest.AddBan(guildID, userID, time.Duration(deleteDays)*24*time.Hour, reasonOpts(reason)...)
	if err != nil {
		sys.LogError("Failed to ban user %s: %v", userID, err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}

	msg := fmt.Sprintf("Banned <@%s>.", userID)
	if reason != "" {
		msg = fmt.Sprintf("Banned <@%s>.\n> Reason: %s", userID, reason)
	}
	respond(event, msg, false)
}

func handleTimeout(event *events.ApplicationCommandInteractionCreate) {
	ctx := context.Background()
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}
	if !requireAdmin(ctx, event) {
		return
	}

	data := event.SlashCommandInteractionData()
	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}
	userID := data.Snowflake("user")

	switch *subCmd {
	case "set":
		until, err := parseTimeoutUntil(data.String("duration"))
		if err != nil {
			respond(event, err.Error(), true)
			return
		}

		reason, _ := data.OptString("reason")
		_, err = event.Client().Rest.UpdateMember(guildID, userID, discord.MemberUpdate{
			CommunicationDisabledUntil: omit.New(&until),
		}, reasonOpts(reason)...)
		if err != nil {
			sys.LogError("Failed to time out user %s: %v", userID, err)
			respond(event, sys.ErrSomethingWrong, true)
			return
		}
		respond(event, fmt.Sprintf("Timed out <@%s> until <t:%d:f>.", userID, until.Unix()), false)

	case "remove":
		_, err := event.Client().Rest.UpdateMember(guildID, userID, discord.MemberUpdate{
			CommunicationDisabledUntil: omit.New[*time.Time](nil),
		})
		if err != nil {
			sys.LogError("Failed to clear timeout for user %s: %v", userID, err)
			respond(event, sys.ErrSomethingWrong, true)
			return
		}
		respond(event, fmt.Sprintf("Removed the timeout for <@%s>.", userID), false)
	}
}

// reasonOpts forwards a non-empty reason to the audit log.
func reasonOpts(reason string) []rest.RequestOpt {
	if reason == "" {
		return nil
	}
	return []rest.RequestOpt{rest.WithReason(reason)}
}

// parseTimeoutUntil turns a natural-language duration into the
// timeout's end time, bounded by Discord's 28 day maximum.
func parseTimeoutUntil(input string) (time.Time, error) {
	now := time.Now().UTC()

	var until time.Time
	if modParser != nil {
		if result, err := modParser.ParseDate(input, now); err == nil && result != nil {
			until = *result
		}
	}
	if until.IsZero() {
		d, err := time.ParseDuration(input)
		if err != nil {
			return time.Time{}, fmt.Errorf("Couldn't parse that duration. Try formats like '10 minutes', '2 hours', or '1 day'.")
		}
		until = now.Add(d)
	}

	if !until.After(now) {
		return time.Time{}, fmt.Errorf("The timeout must end in the future!")
	}
	if until.Sub(now) > maxTimeout {
		return time.Time{}, fmt.Errorf("Timeouts can last at most 28 days.")
	}
	return until, nil
}
