package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/gavinborne/fizzbuzz/sys"
)

// ===========================
// Command Registration
// ===========================

func registerStats() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "stats",
		Description: "Show the bot's runtime stats",
	}, handleStats)

	addHelp("General", "/stats", "Uptime, memory use, and server count.", "/stats")
}

// ===========================
// Handler
// ===========================

func handleStats(event *events.ApplicationCommandInteractionCreate) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	guildCount := "unknown"
	if guilds, err := event.Client().Rest.GetCurrentUserGuilds("", 0, 0, 100, false); err == nil {
		guildCount = fmt.Sprintf("%d", len(guilds))
	}

	var sb strings.Builder
	sb.WriteString("## Bot Stats\n")
	fmt.Fprintf(&sb, "> Uptime: %s\n", formatUptime(time.Since(sys.StartupTime)))
	fmt.Fprintf(&sb, "> Servers: %s\n", guildCount)
	fmt.Fprintf(&sb, "> Memory: %.1f MiB\n", float64(mem.Alloc)/(1024*1024))
	fmt.Fprintf(&sb, "> Goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&sb, "> Go: %s\n", runtime.Version())

	respond(event, sb.String(), false)
}

// formatUptime renders a duration as the largest two units, so
// "3d 7h" rather than "79h12m36s".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
