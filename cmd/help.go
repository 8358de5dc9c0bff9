package cmd

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/gavinborne/fizzbuzz/sys"
	"github.com/gavinborne/fizzbuzz/ui"
)

// ===========================
// Command Registration
// ===========================

func registerHelp() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "help",
		Description: "Browse the bot's commands",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "command",
				Description: "Jump straight to a specific command",
				Required:    false,
			},
		},
	}, handleHelp)

	addHelp("General", "/help", "Browse all commands, one category per page.", "/help [command:/color]")
}

// ===========================
// Handler
// ===========================

func handleHelp(event *events.ApplicationCommandInteractionCreate) {
	categories := helpCategories()
	if len(categories) == 0 {
		respond(event, "No commands are registered yet.", true)
		return
	}

	start := 0
	if query, ok := event.SlashCommandInteractionData().OptString("command"); ok {
		if page, found := findHelpPage(categories, query); found {
			start = page
		} else {
			respond(event, fmt.Sprintf("No command matches `%s`. Try `/help` with no arguments to browse everything.", query), true)
			return
		}
	}

	carousel := ui.NewCarousel(
		sessionID(event),
		event.User().ID,
		len(categories),
		func(page, total int) []discord.LayoutComponent {
			return []discord.LayoutComponent{renderHelpPage(categories[page], page, total)}
		},
		nil,
		ui.WithStartPage(start),
	)

	trackSession(event, carousel.Session)
	respondComponents(event, carousel.Session.Components()...)
}

// ===========================
// Page Building
// ===========================

type helpCategory struct {
	Name    string
	Entries []helpEntry
}

// helpCategories groups the registered entries, preserving the order
// in which categories first appeared.
func helpCategories() []helpCategory {
	index := map[string]int{}
	var categories []helpCategory
	for _, entry := range helpEntries {
		i, ok := index[entry.Category]
		if !ok {
			i = len(categories)
			index[entry.Category] = i
			categories = append(categories, helpCategory{Name: entry.Category})
		}
		categories[i].Entries = append(categories[i].Entries, entry)
	}
	return categories
}

// findHelpPage matches a query against command names, with or without
// the leading slash.
func findHelpPage(categories []helpCategory, query string) (int, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	query = strings.TrimPrefix(query, "/")
	if query == "" {
		return 0, false
	}
	for i, cat := range categories {
		for _, entry := range cat.Entries {
			name := strings.TrimPrefix(strings.ToLower(entry.Name), "/")
			if name == query || strings.HasPrefix(name, query+" ") || strings.HasPrefix(name, query) {
				return i, true
			}
		}
	}
	return 0, false
}

func renderHelpPage(cat helpCategory, page, total int) discord.LayoutComponent {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s Commands\n", cat.Name)
	for _, entry := range cat.Entries {
		fmt.Fprintf(&sb, "**%s**\n%s\n> `%s`\n", entry.Name, entry.Description, entry.Usage)
	}
	fmt.Fprintf(&sb, "\n-# Page %d/%d", page+1, total)

	return discord.NewContainer(
		discord.NewTextDisplay(sb.String()),
	)
}
