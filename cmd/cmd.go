package cmd

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/gavinborne/fizzbuzz/db"
	"github.com/gavinborne/fizzbuzz/sys"
	"github.com/gavinborne/fizzbuzz/ui"
)

// Deps carries the shared stores every command handler needs. Wired
// once from main; commands never construct their own storage.
type Deps struct {
	Cfg      *sys.Config
	Metrics  *db.MetricStore
	Settings *db.SettingsStore
	Views    *ui.Manager
}

var deps *Deps

// Setup registers every command, autocomplete and component route
// against the loader registries.
func Setup(d *Deps) {
	deps = d

	registerColor()
	registerCat()
	registerAnimal()
	registerMath()
	registerMod()
	registerSettings()
	registerHelp()
	registerStats()
	registerWrapped()

	// All view sessions share one custom ID namespace.
	sys.RegisterComponentHandler(ui.CustomIDPrefix, d.Views.HandleComponent)
	sys.RegisterModalHandler(ui.CustomIDPrefix, d.Views.HandleModal)
}

// ===========================
// Response Helpers
// ===========================

// respond sends a response message using Discord V2 components
func respond(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) {
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(content),
			),
		).
		SetEphemeral(ephemeral).
		Build())
}

// respondComponents sends an arbitrary V2 component tree.
func respondComponents(event *events.ApplicationCommandInteractionCreate, comps ...discord.LayoutComponent) {
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(comps...).
		Build())
}

// trackSession registers a session with the view manager and binds the
// interaction response so the session can push its final render when it
// times out.
func trackSession(event *events.ApplicationCommandInteractionCreate, s *ui.Session) {
	deps.Views.Track(s)

	client := event.Client()
	appID := event.ApplicationID()
	token := event.Token()
	s.BindMessage(func(update discord.MessageUpdate) error {
		_, err := client.Rest.UpdateInteractionResponse(appID, token, update)
		return err
	})
}

// sessionID derives a unique view session ID from the interaction.
func sessionID(event *events.ApplicationCommandInteractionCreate) string {
	return event.ID().String()
}

// ===========================
// Admin Gate
// ===========================

// isAdmin reports whether the invoking user may run admin commands:
// bot owners, members with Administrator, or holders of a stored admin
// role.
func isAdmin(ctx context.Context, event *events.ApplicationCommandInteractionCreate) bool {
	if deps.Cfg.IsOwner(event.User().ID) {
		return true
	}

	member := event.Member()
	if member == nil {
		return false
	}
	if member.Permissions.Has(discord.PermissionAdministrator) {
		return true
	}

	guildID := event.GuildID()
	if guildID == nil {
		return false
	}
	adminRoles, err := deps.Settings.AdminRoleIDs(ctx, *guildID)
	if err != nil {
		sys.LogSettings(sys.MsgSettingsLoadFail, "admin_role_ids", err)
		return false
	}
	for _, have := range member.RoleIDs {
		for _, want := range adminRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// requireAdmin runs the gate and reports the denial itself.
func requireAdmin(ctx context.Context, event *events.ApplicationCommandInteractionCreate) bool {
	if isAdmin(ctx, event) {
		return true
	}
	respond(event, sys.ErrAdminOnly, true)
	return false
}

// requireGuild extracts the guild ID, reporting use outside a server.
func requireGuild(event *events.ApplicationCommandInteractionCreate) (snowflake.ID, bool) {
	guildID := event.GuildID()
	if guildID == nil {
		respond(event, sys.ErrGuildOnly, true)
		return 0, false
	}
	return *guildID, true
}

// ===========================
// Help Table
// ===========================

type helpEntry struct {
	Category    string
	Name        string
	Description string
	Usage       string
}

var helpEntries []helpEntry

// addHelp records a command page for /help at registration time.
func addHelp(category, name, description, usage string) {
	helpEntries = append(helpEntries, helpEntry{
		Category:    category,
		Name:        name,
		Description: description,
		Usage:       usage,
	})
}

// ===========================
// Small Utilities
// ===========================

func intPtr(i int) *int { return &i }
