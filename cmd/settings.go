package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"

	"github.com/gavinborne/fizzbuzz/db"
	"github.com/gavinborne/fizzbuzz/sys"
)

// ===========================
// Command Registration
// ===========================

func registerSettings() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "settings",
		Description:              "Bot settings for this server",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommandGroup{
				Name:        "adminrole",
				Description: "Manage roles that may use admin commands",
				Options: []discord.ApplicationCommandOptionSubCommand{
					{
						Name:        "add",
						Description: "Grant a role admin command access",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionRole{
								Name:        "role",
								Description: "The role to add",
								Required:    true,
							},
						},
					},
					{
						Name:        "remove",
						Description: "Revoke a role's admin command access",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionRole{
								Name:        "role",
								Description: "The role to remove",
								Required:    true,
							},
						},
					},
					{
						Name:        "list",
						Description: "List roles with admin command access",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommandGroup{
				Name:        "ignorechannel",
				Description: "Manage channels excluded from message metrics",
				Options: []discord.ApplicationCommandOptionSubCommand{
					{
						Name:        "add",
						Description: "Exclude a channel from message metrics",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionChannel{
								Name:        "channel",
								Description: "The channel to exclude",
								Required:    true,
							},
						},
					},
					{
						Name:        "remove",
						Description: "Include a channel in message metrics again",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionChannel{
								Name:        "channel",
								Description: "The channel to include",
								Required:    true,
							},
						},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "show",
				Description: "Show every stored setting for this server",
			},
		},
	}, handleSettings)

	addHelp("Admin", "/settings adminrole", "Manage roles allowed to run admin commands.", "/settings adminrole add role:@Mods")
	addHelp("Admin", "/settings ignorechannel", "Exclude channels from message metrics.", "/settings ignorechannel add channel:#spam")
	addHelp("Admin", "/settings show", "Dump this server's stored settings.", "/settings show")
}

// ===========================
// Handlers
// ===========================

func handleSettings(event *events.ApplicationCommandInteractionCreate) {
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

	group := ""
	if data.SubCommandGroupName != nil {
		group = *data.SubCommandGroupName
	}

	switch {
	case group == "adminrole" && *subCmd == "add":
		handleAdminRoleAdd(ctx, event, guildID, data.Snowflake("role"))
	case group == "adminrole" && *subCmd == "remove":
		handleAdminRoleRemove(ctx, event, guildID, data.Snowflake("role"))
	case group == "adminrole" && *subCmd == "list":
		handleAdminRoleList(ctx, event, guildID)
	case group == "ignorechannel" && *subCmd == "add":
		handleIgnoreChannelAdd(ctx, event, guildID, data.Snowflake("channel"))
	case group == "ignorechannel" && *subCmd == "remove":
		handleIgnoreChannelRemove(ctx, event, guildID, data.Snowflake("channel"))
	case *subCmd == "show":
		handleSettingsShow(ctx, event, guildID)
	}
}

func handleAdminRoleAdd(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID, roleID snowflake.ID) {
	roles, err := deps.Settings.AdminRoleIDs(ctx, guildID)
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	for _, id := range roles {
		if id == roleID {
			respond(event, fmt.Sprintf("<@&%s> already has admin access.", roleID), true)
			return
		}
	}

	roles = append(roles, roleID)
	if err := deps.Settings.SetAdminRoleIDs(ctx, guildID, roles); err != nil {
		sys.LogSettings(sys.MsgSettingsSaveFail, "admin_role_ids", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("<@&%s> can now use admin commands.", roleID), false)
}

func handleAdminRoleRemove(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID, roleID snowflake.ID) {
	roles, err := deps.Settings.AdminRoleIDs(ctx, guildID)
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}

	kept := roles[:0]
	removed := false
	for _, id := range roles {
		if id == roleID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		respond(event, fmt.Sprintf("<@&%s> doesn't have admin access.", roleID), true)
		return
	}

	if err := deps.Settings.SetAdminRoleIDs(ctx, guildID, kept); err != nil {
		sys.LogSettings(sys.MsgSettingsSaveFail, "admin_role_ids", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("<@&%s> can no longer use admin commands.", roleID), false)
}

func handleAdminRoleList(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID snowflake.ID) {
	roles, err := deps.Settings.AdminRoleIDs(ctx, guildID)
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	if len(roles) == 0 {
		respond(event, "No admin roles are configured. Bot owners and members with Administrator always have access.", true)
		return
	}

	var sb strings.Builder
	sb.WriteString("**Admin Roles**\n")
	for _, id := range roles {
		fmt.Fprintf(&sb, "> <@&%s>\n", id)
	}
	respond(event, sb.String(), true)
}

func handleIgnoreChannelAdd(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID, channelID snowflake.ID) {
	channels, err := deps.Settings.IgnoredChannelIDs(ctx, guildID)
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	for _, id := range channels {
		if id == channelID {
			respond(event, fmt.Sprintf("<#%s> is already excluded from metrics.", channelID), true)
			return
		}
	}

	channels = append(channels, channelID)
	if err := deps.Settings.SetIgnoredChannelIDs(ctx, guildID, channels); err != nil {
		sys.LogSettings(sys.MsgSettingsSaveFail, "metrics_ignored_channels", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("<#%s> is now excluded from message metrics.", channelID), false)
}

func handleIgnoreChannelRemove(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID, channelID snowflake.ID) {
	channels, err := deps.Settings.IgnoredChannelIDs(ctx, guildID)
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}

	kept := channels[:0]
	removed := false
	for _, id := range channels {
		if id == channelID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		respond(event, fmt.Sprintf("<#%s> isn't excluded from metrics.", channelID), true)
		return
	}

	if err := deps.Settings.SetIgnoredChannelIDs(ctx, guildID, kept); err != nil {
		sys.LogSettings(sys.MsgSettingsSaveFail, "metrics_ignored_channels", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("<#%s> is included in message metrics again.", channelID), false)
}

func handleSettingsShow(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID snowflake.ID) {
	values, err := deps.Settings.All(ctx, db.ScopeGuild, guildID.String())
	if err != nil {
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	if len(values) == 0 {
		respond(event, "No settings are stored for this server yet.", true)
		return
	}

	var sb strings.Builder
	sb.WriteString("**Server Settings**\n")
	for key, raw := range values {
		fmt.Fprintf(&sb, "> `%s`: `%s`\n", key, string(raw))
	}
	respond(event, sb.String(), true)
}
