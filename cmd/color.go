package cmd

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/gavinborne/fizzbuzz/sys"
	"github.com/gavinborne/fizzbuzz/ui"
)

// ===========================
// Command Registration
// ===========================

func registerColor() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "color",
		Description: "Color role commands",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set",
				Description: "Assign yourself a color role",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "color",
						Description: "Hex value (#RRGGBB) or a CSS color name",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "random",
				Description: "Assign yourself a random color",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "seed",
						Description: "Optional seed to use when generating the color",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "reset",
				Description: "Remove your color role",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "info",
				Description: "Inspect and adjust a color before applying it",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "color",
						Description: "Hex value (#RRGGBB) or a CSS color name",
						Required:    true,
					},
				},
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		subCmd := data.SubCommandName
		if subCmd == nil {
			return
		}

		switch *subCmd {
		case "set":
			handleColorSet(event, data)
		case "random":
			handleColorRandom(event, data)
		case "reset":
			handleColorReset(event)
		case "info":
			handleColorInfo(event, data)
		}
	})

	addHelp("Color", "/color set", "Assign yourself a color role by hex or CSS name.", "/color set color:#ff8800")
	addHelp("Color", "/color random", "Assign yourself a random color role.", "/color random [seed:text]")
	addHelp("Color", "/color reset", "Remove your color role.", "/color reset")
	addHelp("Color", "/color info", "Preview a color with lighten/darken/invert controls.", "/color info color:crimson")
}

// ===========================
// Color Math
// ===========================

var hexColorRe = regexp.MustCompile(`^[A-Fa-f0-9]{6}$`)

// cssColors is the CSS name table users can pick from. Black is 000001
// since Discord reserves #000000 for "no color".
var cssColors = map[string]int{
	"red":          0xff0000,
	"crimson":      0xdc143c,
	"dark red":     0x8b0000,
	"salmon":       0xfa8072,
	"pink":         0xffc0cb,
	"hot pink":     0xff69b4,
	"deep pink":    0xff1493,
	"coral":        0xff7f50,
	"tomato":       0xff6347,
	"orange red":   0xff4500,
	"orange":       0xffa500,
	"gold":         0xffd700,
	"yellow":       0xffff00,
	"khaki":        0xf0e68c,
	"lavender":     0xe6e6fa,
	"plum":         0xdda0dd,
	"violet":       0xee82ee,
	"orchid":       0xda70d6,
	"magenta":      0xff00ff,
	"purple":       0x800080,
	"indigo":       0x4b0082,
	"slate blue":   0x6a5acd,
	"lime":         0x00ff00,
	"lime green":   0x32cd32,
	"pale green":   0x98fb98,
	"spring green": 0x00ff7f,
	"sea green":    0x2e8b57,
	"forest green": 0x228b22,
	"green":        0x008000,
	"olive":        0x808000,
	"teal":         0x008080,
	"cyan":         0x00ffff,
	"turquoise":    0x40e0d0,
	"sky blue":     0x87ceeb,
	"dodger blue":  0x1e90ff,
	"royal blue":   0x4169e1,
	"blue":         0x0000ff,
	"navy":         0x000080,
	"chocolate":    0xd2691e,
	"brown":        0xa52a2a,
	"maroon":       0x800000,
	"white":        0xffffff,
	"silver":       0xc0c0c0,
	"gray":         0x808080,
	"black":        0x000001,
}

// parseColor resolves a user-supplied color string, either a 6-digit
// hex value (with optional #) or a CSS color name.
func parseColor(input string) (int, bool) {
	trimmed := strings.TrimSpace(input)
	hex := strings.TrimPrefix(trimmed, "#")
	if hexColorRe.MatchString(hex) {
		var value int
		fmt.Sscanf(strings.ToLower(hex), "%06x", &value)
		return value, true
	}
	if value, ok := cssColors[strings.ToLower(trimmed)]; ok {
		return value, true
	}
	return 0, false
}

// colorName returns the CSS name for a value, if the table has one.
func colorName(value int) string {
	for name, v := range cssColors {
		if v == value {
			return name
		}
	}
	return ""
}

func splitRGB(value int) (r, g, b int) {
	return (value >> 16) & 0xFF, (value >> 8) & 0xFF, value & 0xFF
}

func joinRGB(r, g, b int) int {
	return r<<16 | g<<8 | b
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// lightenColor blends each channel toward white by pct (0-1).
func lightenColor(value int, pct float64) int {
	r, g, b := splitRGB(value)
	r = clampChannel(r + int(float64(255-r)*pct))
	g = clampChannel(g + int(float64(255-g)*pct))
	b = clampChannel(b + int(float64(255-b)*pct))
	return joinRGB(r, g, b)
}

// darkenColor scales each channel toward black by pct (0-1).
func darkenColor(value int, pct float64) int {
	r, g, b := splitRGB(value)
	r = clampChannel(int(float64(r) * (1 - pct)))
	g = clampChannel(int(float64(g) * (1 - pct)))
	b = clampChannel(int(float64(b) * (1 - pct)))
	return joinRGB(r, g, b)
}

func invertColor(value int) int {
	r, g, b := splitRGB(value)
	return joinRGB(255-r, 255-g, 255-b)
}

// randomColor picks a 24-bit color, optionally seeded for
// reproducible results.
func randomColor(seed string) int {
	rng := rand.New(rand.NewSource(rand.Int63()))
	if seed != "" {
		var h int64
		for _, c := range seed {
			h = h*31 + int64(c)
		}
		rng = rand.New(rand.NewSource(h))
	}
	value := rng.Intn(0xFFFFFF) + 1 // avoid reserved #000000
	return value
}

func formatHex(value int) string {
	return fmt.Sprintf("#%06X", value)
}

// ===========================
// Role Plumbing
// ===========================

// colorRoleName generates the color role name for the given member.
func colorRoleName(user discord.User) string {
	return fmt.Sprintf("%s's Color", user.Username)
}

// findColorRole locates a member's color role by name.
func findColorRole(event *events.ApplicationCommandInteractionCreate, guildID snowflake.ID) (*discord.Role, bool) {
	var found *discord.Role
	name := colorRoleName(event.User())
	for role := range event.Client().Caches.Roles(guildID) {
		if role.Name == name {
			r := role
			found = &r
		}
	}
	if found != nil {
		return found, true
	}

	roles, err := event.Client().Rest.GetRoles(guildID)
	if err != nil {
		return nil, false
	}
	for _, role := range roles {
		if role.Name == name {
			r := role
			return &r, true
		}
	}
	return nil, false
}

// applyColorRole creates or recolors the member's color role.
func applyColorRole(event *events.ApplicationCommandInteractionCreate, guildID snowflake.ID, value int) error {
	client := event.Client()

	if role, ok := findColorRole(event, guildID); ok {
		_, err := client.Rest.UpdateRole(guildID, role.ID, discord.RoleUpdate{
			Color: &value,
		})
		return err
	}

	role, err := client.Rest.CreateRole(guildID, discord.RoleCreate{
		Name:  colorRoleName(event.User()),
		Color: value,
	})
	if err != nil {
		return err
	}
	return client.Rest.AddMemberRole(guildID, event.User().ID, role.ID)
}

// ===========================
// Handler Functions
// ===========================

func handleColorSet(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	value, ok := parseColor(data.String("color"))
	if !ok {
		respond(event, "Invalid color. Use a hex value like `#ff8800` or a CSS color name.", true)
		return
	}

	if err := applyColorRole(event, guildID, value); err != nil {
		sys.LogError("Failed to apply color role: %v", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("Your role color is now **%s**.", formatHex(value)), false)
}

func handleColorRandom(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	seed := ""
	if s, ok := data.OptString("seed"); ok {
		seed = s
	}
	value := randomColor(seed)

	if err := applyColorRole(event, guildID, value); err != nil {
		sys.LogError("Failed to apply color role: %v", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, fmt.Sprintf("Your role color is now **%s**.", formatHex(value)), false)
}

func handleColorReset(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	role, found := findColorRole(event, guildID)
	if !found {
		respond(event, "You don't have a color role to remove.", true)
		return
	}

	if err := event.Client().Rest.DeleteRole(guildID, role.ID); err != nil {
		sys.LogError("Failed to delete color role: %v", err)
		respond(event, sys.ErrSomethingWrong, true)
		return
	}
	respond(event, "Your color role has been removed.", false)
}

// handleColorInfo opens an owner-restricted adjust view: the swatch
// text re-renders on every button press, Apply writes the current
// value to the member's role.
func handleColorInfo(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	value, ok := parseColor(data.String("color"))
	if !ok {
		respond(event, "Invalid color. Use a hex value like `#ff8800` or a CSS color name.", true)
		return
	}

	current := value
	s := ui.NewSession(sessionID(event), event.User().ID, func(s *ui.Session) []discord.LayoutComponent {
		return []discord.LayoutComponent{
			discord.NewContainer(
				discord.NewTextDisplay(colorInfoText(current)),
			),
			s.ControlRow(),
		}
	})

	s.AddControl(ui.Control{
		ID:    "lighten",
		Label: "Lighten",
		Style: discord.ButtonStyleSecondary,
		Handle: func(s *ui.Session, itx ui.Interaction) error {
			current = lightenColor(current, 0.1)
			return s.Render(itx)
		},
	})
	s.AddControl(ui.Control{
		ID:    "darken",
		Label: "Darken",
		Style: discord.ButtonStyleSecondary,
		Handle: func(s *ui.Session, itx ui.Interaction) error {
			current = darkenColor(current, 0.1)
			return s.Render(itx)
		},
	})
	s.AddControl(ui.Control{
		ID:    "invert",
		Label: "Invert",
		Style: discord.ButtonStyleSecondary,
		Handle: func(s *ui.Session, itx ui.Interaction) error {
			current = invertColor(current)
			return s.Render(itx)
		},
	})
	s.AddControl(ui.Control{
		ID:    "apply",
		Label: "Apply",
		Style: discord.ButtonStyleSuccess,
		Handle: func(s *ui.Session, itx ui.Interaction) error {
			if err := applyColorRole(event, guildID, current); err != nil {
				sys.LogError("Failed to apply color role: %v", err)
				return itx.Notify(sys.ErrSomethingWrong)
			}
			return s.Close(itx)
		},
	})

	trackSession(event, s)
	respondComponents(event, s.Components()...)
}

func colorInfoText(value int) string {
	r, g, b := splitRGB(value)
	text := fmt.Sprintf("**Color Preview**\n\n> Hex: `%s`\n> RGB: `(%d, %d, %d)`", formatHex(value), r, g, b)
	if name := colorName(value); name != "" {
		text += fmt.Sprintf("\n> Name: `%s`", name)
	}
	return text
}
