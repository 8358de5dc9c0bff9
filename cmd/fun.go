package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"golang.org/x/time/rate"

	"github.com/gavinborne/fizzbuzz/sys"
	"github.com/gavinborne/fizzbuzz/ui"
)

// ===========================
// Command Registration
// ===========================

func registerCat() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "cat",
		Description: "Cat related commands",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "fact",
				Description: "Get a random cat fact",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "image",
				Description: "Get a random cat image",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		subCmd := data.SubCommandName
		if subCmd == nil {
			return
		}

		switch *subCmd {
		case "fact":
			handleCatFact(event)
		case "image":
			handleCatImage(event)
		}
	})

	addHelp("Fun", "/cat fact", "Get a random cat fact.", "/cat fact")
	addHelp("Fun", "/cat image", "Get a random cat image.", "/cat image")
}

func registerAnimal() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "animal",
		Description: "Look up an animal with photos from iNaturalist",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:         "kind",
				Description:  "The animal to search for",
				Required:     true,
				Autocomplete: true,
			},
			discord.ApplicationCommandOptionInt{
				Name:        "images",
				Description: "Number of photos to fetch (1-5)",
				Required:    false,
				MinValue:    intPtr(1),
				MaxValue:    intPtr(5),
			},
		},
	}, handleAnimal)

	sys.RegisterAutocompleteHandler("animal", handleAnimalAutocomplete)

	addHelp("Fun", "/animal", "Search iNaturalist for an animal and browse its photos.", "/animal kind:axolotl [images:3]")
}

// ===========================
// Cat APIs
// ===========================

const (
	catFactApiURL  = "https://catfact.ninja/fact"
	catImageApiURL = "https://api.thecatapi.com/v1/images/search"
)

// CatFact represents a cat fact response from the API
type CatFact struct {
	Fact   string `json:"fact"`
	Length int    `json:"length"`
}

// CatImage represents a cat image response from the API
type CatImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// handleCatFact fetches and displays a random cat fact from the API
func handleCatFact(event *events.ApplicationCommandInteractionCreate) {
	var data CatFact
	if err := fetchJSON(catFactApiURL, &data); err != nil {
		respond(event, fmt.Sprintf("**API Unreachable**: The cat fact service is currently offline or timing out.\n> _%v_", err), true)
		return
	}
	respond(event, data.Fact+" 🐱", false)
}

// handleCatImage fetches and displays a random cat image from the API
func handleCatImage(event *events.ApplicationCommandInteractionCreate) {
	var data []CatImage
	if err := fetchJSON(catImageApiURL, &data); err != nil {
		respond(event, fmt.Sprintf("**API Unreachable**: The cat image service is currently offline or timing out.\n> _%v_", err), true)
		return
	}
	if len(data) == 0 {
		respond(event, "**Empty Result**: The API returned an empty list of images.", true)
		return
	}

	respondComponents(event,
		discord.NewContainer(
			discord.NewMediaGallery(
				discord.MediaGalleryItem{
					Media: discord.UnfurledMediaItem{
						URL: data[0].URL,
					},
				},
			),
		),
	)
}

// ===========================
// iNaturalist API
// ===========================

const (
	inatTaxaURL         = "https://api.inaturalist.org/v1/taxa"
	inatObservationsURL = "https://api.inaturalist.org/v1/observations"
	inatAutocompleteURL = "https://api.inaturalist.org/v1/taxa/autocomplete"

	autocompleteMinChars = 3
	autocompleteMaxOpts  = 10
	autocompleteCacheMax = 128
	imageFetchAttempts   = 15
)

// inatLimiter keeps us well under iNaturalist's public rate limits.
var inatLimiter = rate.NewLimiter(rate.Every(time.Second), 2)

type inatPhoto struct {
	URL         string `json:"url"`
	OriginalURL string `json:"original_url"`
	LargeURL    string `json:"large_url"`
}

func (p inatPhoto) best() string {
	for _, u := range []string{p.URL, p.OriginalURL, p.LargeURL} {
		if strings.TrimSpace(u) != "" {
			return u
		}
	}
	return ""
}

type inatTaxon struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	PreferredCommonName string     `json:"preferred_common_name"`
	Rank                string     `json:"rank"`
	WikipediaSummary    string     `json:"wikipedia_summary"`
	WikipediaURL        string     `json:"wikipedia_url"`
	DefaultPhoto        *inatPhoto `json:"default_photo"`
	TaxonPhotos         []struct {
		Photo inatPhoto `json:"photo"`
	} `json:"taxon_photos"`
}

type inatTaxaResponse struct {
	Results []inatTaxon `json:"results"`
}

type inatObservation struct {
	SpeciesGuess string      `json:"species_guess"`
	Description  string      `json:"description"`
	Tags         []string    `json:"tags"`
	Photos       []inatPhoto `json:"photos"`
}

type inatObservationsResponse struct {
	Results []inatObservation `json:"results"`
}

// The first test of randomized observation photos returned a photo of
// a dog's skull. Observations whose text matches this are skipped.
var grossWordsRe = regexp.MustCompile(`(?i)\b(skull|skeleton|bones?|dead|deceased|roadkill|carcass|corpse|remains|taxidermy|pelt|hide|fur|skin|mounted?|trophy|scat|poop|feces|droppings?|tracks?|footprint|pawprint|specimen|museum|collection|preserved|blood|bleeding|injur(y|ed))\b`)

func observationSeemsGross(obs inatObservation) bool {
	parts := []string{obs.SpeciesGuess, obs.Description}
	parts = append(parts, obs.Tags...)
	return grossWordsRe.MatchString(strings.Join(parts, " "))
}

// fetchJSON performs a rate-limited GET and decodes the JSON body.
func fetchJSON(rawURL string, dest any) error {
	if err := inatLimiter.Wait(context.Background()); err != nil {
		return err
	}

	resp, err := sys.HttpClient.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

// resolveTaxon finds the best taxon match for a query, preferring the
// autocomplete endpoint which handles common names well.
func resolveTaxon(query string) (*inatTaxon, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return nil, fmt.Errorf("animal name cannot be empty")
	}

	var auto inatTaxaResponse
	params := url.Values{"q": {q}, "per_page": {"10"}}
	if err := fetchJSON(inatAutocompleteURL+"?"+params.Encode(), &auto); err == nil && len(auto.Results) > 0 {
		top := auto.Results[0]
		// fetch the full taxon by id for consistent fields
		var byID inatTaxaResponse
		if err := fetchJSON(fmt.Sprintf("%s/%d", inatTaxaURL, top.ID), &byID); err == nil && len(byID.Results) > 0 {
			return &byID.Results[0], nil
		}
		return &top, nil
	}

	var search inatTaxaResponse
	if err := fetchJSON(inatTaxaURL+"?"+params.Encode(), &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, fmt.Errorf("no iNaturalist results for %q", query)
	}
	return &search.Results[0], nil
}

// observationImage pulls one random research-grade observation photo.
func observationImage(taxonID int) string {
	params := url.Values{
		"taxon_id":      {fmt.Sprint(taxonID)},
		"per_page":      {"60"},
		"page":          {"1"},
		"order_by":      {"random"},
		"photos":        {"true"},
		"quality_grade": {"research"},
		"verifiable":    {"true"},
		"captive":       {"false"},
	}

	var obs inatObservationsResponse
	if err := fetchJSON(inatObservationsURL+"?"+params.Encode(), &obs); err != nil || len(obs.Results) == 0 {
		return ""
	}

	for range imageFetchAttempts {
		o := obs.Results[rand.Intn(len(obs.Results))]
		if observationSeemsGross(o) || len(o.Photos) == 0 {
			continue
		}
		if u := o.Photos[rand.Intn(len(o.Photos))].best(); u != "" {
			return u
		}
	}
	return ""
}

// taxonImages collects up to count distinct photo URLs for a taxon:
// random observations first, taxon photos and the default photo as
// fallbacks.
func taxonImages(taxon *inatTaxon, count int) []string {
	var urls []string
	seen := map[string]bool{}

	add := func(u string) {
		if u == "" {
			return
		}
		// iNat returns .../square.jpg; bump to the large rendition
		u = strings.Replace(u, "/square.", "/large.", 1)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	for range count * 3 {
		if len(urls) >= count {
			break
		}
		add(observationImage(taxon.ID))
	}
	for _, tp := range taxon.TaxonPhotos {
		if len(urls) >= count {
			break
		}
		add(tp.Photo.best())
	}
	if len(urls) < count && taxon.DefaultPhoto != nil {
		add(taxon.DefaultPhoto.best())
	}
	return urls
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// taxonFact builds the fact blurb from the wiki summary and names.
func taxonFact(taxon *inatTaxon) string {
	summary := htmlTagRe.ReplaceAllString(taxon.WikipediaSummary, "")
	summary = strings.Join(strings.Fields(summary), " ")
	summary = strings.ReplaceAll(summary, "*", `\*`)

	var header string
	switch {
	case taxon.PreferredCommonName != "" && !strings.EqualFold(taxon.PreferredCommonName, taxon.Name):
		header = fmt.Sprintf("**%s - %s**", taxon.PreferredCommonName, taxon.Name)
	case taxon.PreferredCommonName != "":
		header = fmt.Sprintf("**%s**", taxon.PreferredCommonName)
	default:
		header = fmt.Sprintf("**%s**", taxon.Name)
	}

	if summary == "" {
		return header
	}
	return header + "\n" + summary
}

// ===========================
// /animal Handler
// ===========================

func handleAnimal(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	kind := data.String("kind")
	count := 3
	if n, ok := data.OptInt("images"); ok {
		count = n
	}

	// the iNat round trips take a while
	if err := event.DeferCreateMessage(false); err != nil {
		return
	}
	client := event.Client()
	appID := event.ApplicationID()
	token := event.Token()
	editResponse := func(update discord.MessageUpdate) error {
		_, err := client.Rest.UpdateInteractionResponse(appID, token, update)
		return err
	}
	fail := func(msg string) {
		_ = editResponse(discord.NewMessageUpdateBuilder().
			SetIsComponentsV2(true).
			SetComponents(discord.NewContainer(discord.NewTextDisplay(msg))).
			Build())
	}

	taxon, err := resolveTaxon(kind)
	if err != nil {
		fail(fmt.Sprintf("No results for `%s`. Try a more specific name.", kind))
		return
	}

	images := taxonImages(taxon, count)
	if len(images) == 0 {
		fail(fmt.Sprintf("Could not find a photo for `%s` on iNaturalist.", kind))
		return
	}

	fact := taxonFact(taxon)
	source := "iNaturalist"
	if taxon.WikipediaURL != "" {
		source = fmt.Sprintf("iNaturalist (Wiki: <%s>)", strings.ReplaceAll(taxon.WikipediaURL, " ", "_"))
	}

	c := ui.NewCarousel(sessionID(event), event.User().ID, len(images),
		func(index, pages int) []discord.LayoutComponent {
			return []discord.LayoutComponent{
				discord.NewContainer(
					discord.NewTextDisplay(fact),
					discord.NewMediaGallery(
						discord.MediaGalleryItem{
							Media: discord.UnfurledMediaItem{URL: images[index]},
						},
					),
					discord.NewTextDisplay(fmt.Sprintf("-# Photo %d/%d · %s", index+1, pages, source)),
				),
			}
		}, nil)

	deps.Views.Track(c.Session)
	c.Session.BindMessage(editResponse)

	_ = editResponse(discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		SetComponents(c.Session.Components()...).
		Build())
}

// ===========================
// /animal Autocomplete
// ===========================

var (
	animalAutoMu    sync.Mutex
	animalAutoCache = map[string][]discord.AutocompleteChoice{}
)

func handleAnimalAutocomplete(event *events.AutocompleteInteractionCreate) {
	q := strings.TrimSpace(event.Data.String("kind"))
	if len(q) < autocompleteMinChars {
		_ = event.AutocompleteResult(nil)
		return
	}

	cacheKey := strings.ToLower(q)
	animalAutoMu.Lock()
	cached, ok := animalAutoCache[cacheKey]
	animalAutoMu.Unlock()
	if ok {
		_ = event.AutocompleteResult(cached)
		return
	}

	params := url.Values{"q": {q}, "per_page": {fmt.Sprint(autocompleteMaxOpts)}}
	var resp inatTaxaResponse
	if err := fetchJSON(inatAutocompleteURL+"?"+params.Encode(), &resp); err != nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	var choices []discord.AutocompleteChoice
	for _, taxon := range resp.Results {
		label := formatTaxonChoice(taxon)
		if label == "" {
			continue
		}
		// the scientific name is unambiguous, pass it as the value
		value := taxon.Name
		if value == "" {
			value = label
		}
		choices = append(choices, discord.AutocompleteChoiceString{Name: label, Value: value})
		if len(choices) >= autocompleteMaxOpts {
			break
		}
	}

	animalAutoMu.Lock()
	if len(animalAutoCache) >= autocompleteCacheMax {
		animalAutoCache = map[string][]discord.AutocompleteChoice{}
	}
	animalAutoCache[cacheKey] = choices
	animalAutoMu.Unlock()

	_ = event.AutocompleteResult(choices)
}

// formatTaxonChoice renders "Axolotl — Ambystoma mexicanum (species)".
func formatTaxonChoice(taxon inatTaxon) string {
	var base string
	switch {
	case taxon.PreferredCommonName != "" && taxon.Name != "" && !strings.EqualFold(taxon.PreferredCommonName, taxon.Name):
		base = taxon.PreferredCommonName + " — " + taxon.Name
	case taxon.PreferredCommonName != "":
		base = taxon.PreferredCommonName
	default:
		base = taxon.Name
	}
	if base == "" {
		return ""
	}
	if taxon.Rank != "" {
		base = fmt.Sprintf("%s (%s)", base, taxon.Rank)
	}
	if len(base) > 100 {
		base = base[:97] + "..."
	}
	return base
}
