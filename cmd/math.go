package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/gavinborne/fizzbuzz/sys"
)

// ===========================
// Command Registration
// ===========================

func registerMath() {
	twoArgs := []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionFloat{
			Name:        "x",
			Description: "The first number",
			Required:    true,
		},
		discord.ApplicationCommandOptionFloat{
			Name:        "y",
			Description: "The second number",
			Required:    true,
		},
	}

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "math",
		Description: "Math commands",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Add two numbers",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sum",
				Description: "Sum up an arbitrary amount of numbers",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "numbers",
						Description: "Space-separated numbers to sum",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sub",
				Description: "Subtract two numbers",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "mul",
				Description: "Multiply two numbers",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "div",
				Description: "Divide two numbers",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "pow",
				Description: "Raise a number to the power of another",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "mod",
				Description: "Calculate the modulus of two numbers",
				Options:     twoArgs,
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sqrt",
				Description: "Calculate the square root of a number",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionFloat{
						Name:        "x",
						Description: "The number",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "round",
				Description: "Round a number to the specified number of digits",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionFloat{
						Name:        "x",
						Description: "The number",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "digits",
						Description: "Digits after the decimal point (default 0)",
						Required:    false,
					},
				},
			},
		},
	}, handleMath)

	addHelp("Math", "/math", "Arithmetic helpers: add, sum, sub, mul, div, pow, mod, sqrt, round.", "/math div x:10 y:4")
}

// ===========================
// Handler
// ===========================

func handleMath(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	var result float64
	var expr string

	switch *subCmd {
	case "add":
		x, y := data.Float("x"), data.Float("y")
		result = x + y
		expr = fmt.Sprintf("%s + %s", formatNumber(x), formatNumber(y))
	case "sum":
		values, err := parseNumberList(data.String("numbers"))
		if err != nil {
			respond(event, err.Error(), true)
			return
		}
		result = sumNumbers(values)
		expr = strings.Join(formatNumbers(values), " + ")
	case "sub":
		x, y := data.Float("x"), data.Float("y")
		result = x - y
		expr = fmt.Sprintf("%s - %s", formatNumber(x), formatNumber(y))
	case "mul":
		x, y := data.Float("x"), data.Float("y")
		result = x * y
		expr = fmt.Sprintf("%s × %s", formatNumber(x), formatNumber(y))
	case "div":
		x, y := data.Float("x"), data.Float("y")
		if y == 0 {
			respond(event, "Cannot divide by zero!", true)
			return
		}
		result = x / y
		expr = fmt.Sprintf("%s ÷ %s", formatNumber(x), formatNumber(y))
	case "pow":
		x, y := data.Float("x"), data.Float("y")
		result = math.Pow(x, y)
		expr = fmt.Sprintf("%s ^ %s", formatNumber(x), formatNumber(y))
	case "mod":
		x, y := data.Float("x"), data.Float("y")
		if y == 0 {
			respond(event, "Cannot take a modulus with zero!", true)
			return
		}
		result = math.Mod(x, y)
		expr = fmt.Sprintf("%s mod %s", formatNumber(x), formatNumber(y))
	case "sqrt":
		x := data.Float("x")
		if x < 0 {
			respond(event, "Cannot take the square root of a negative number!", true)
			return
		}
		result = math.Sqrt(x)
		expr = fmt.Sprintf("√%s", formatNumber(x))
	case "round":
		x := data.Float("x")
		digits := 0
		if d, ok := data.OptInt("digits"); ok {
			digits = d
		}
		result = roundDigits(x, digits)
		expr = fmt.Sprintf("round(%s, %d)", formatNumber(x), digits)
	default:
		return
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		respond(event, "The result is not a representable number.", true)
		return
	}
	respond(event, fmt.Sprintf("`%s = %s`", expr, formatNumber(result)), false)
}

// ===========================
// Pure Bodies
// ===========================

// parseNumberList splits a space or comma separated list of numbers.
func parseNumberList(input string) ([]float64, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("Provide at least one number, separated by spaces.")
	}

	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("`%s` is not a number.", f)
		}
		values = append(values, v)
	}
	return values, nil
}

func sumNumbers(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// roundDigits rounds half away from zero at the given decimal place.
func roundDigits(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(x*scale) / scale
}

// formatNumber drops the trailing ".000000" for integral values.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNumbers(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = formatNumber(v)
	}
	return out
}
