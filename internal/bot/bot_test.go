package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/saucebot/saucebot/internal/cooldown"
	"github.com/saucebot/saucebot/internal/domain"
	"github.com/saucebot/saucebot/internal/lang"
	"github.com/saucebot/saucebot/internal/render"
	"github.com/saucebot/saucebot/internal/services"
)

// ----- Fakes -----

type fakeResponder struct {
	mu       sync.Mutex
	responds []*discordgo.InteractionResponse
	edits    []*discordgo.WebhookEdit
	notify   chan struct{}
}

func newFakeResponder() *fakeResponder {
	return &fakeResponder{notify: make(chan struct{}, 64)}
}

func (f *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.responds = append(f.responds, resp)
	f.mu.Unlock()
	f.notify <- struct{}{}
	return nil
}

func (f *fakeResponder) InteractionResponseEdit(_ *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.edits = append(f.edits, e)
	f.mu.Unlock()
	f.notify <- struct{}{}
	return &discordgo.Message{}, nil
}

func (f *fakeResponder) snapshot() ([]*discordgo.InteractionResponse, []*discordgo.WebhookEdit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.InteractionResponse(nil), f.responds...), append([]*discordgo.WebhookEdit(nil), f.edits...)
}

func (f *fakeResponder) lastDescription(t *testing.T) string {
	t.Helper()
	_, edits := f.snapshot()
	if len(edits) == 0 || edits[len(edits)-1].Embeds == nil || len(*edits[len(edits)-1].Embeds) == 0 {
		t.Fatalf("no embed edit recorded")
	}
	return (*edits[len(edits)-1].Embeds)[0].Description
}

type fakeLookup struct {
	mu      sync.Mutex
	outcome domain.Outcome
	err     error
	urls    []string
	guilds  []int64
}

func (f *fakeLookup) Lookup(_ context.Context, guildID int64, imageURL string) (domain.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, imageURL)
	f.guilds = append(f.guilds, guildID)
	return f.outcome, f.err
}

func (f *fakeLookup) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type fakeSettings struct {
	err      error
	count    int64
	keys     []string
	countErr error
}

func (f *fakeSettings) RegisterAPIKey(_ context.Context, _ int64, key string) error {
	f.keys = append(f.keys, key)
	return f.err
}

func (f *fakeSettings) TotalQueryCount(context.Context) (int64, error) { return f.count, f.countErr }

type fakeGate struct {
	err      error
	subjects []cooldown.Subject
	commands []bool
}

func (g *fakeGate) Admit(_ context.Context, s cooldown.Subject, command bool) error {
	g.subjects = append(g.subjects, s)
	g.commands = append(g.commands, command)
	return g.err
}

type fakeReporter struct{ errs []error }

func (r *fakeReporter) Capture(_ context.Context, err error, _ map[string]string) {
	r.errs = append(r.errs, err)
}

type harness struct {
	bot      *Bot
	lookup   *fakeLookup
	settings *fakeSettings
	gate     *fakeGate
	reporter *fakeReporter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr := lang.MustLoad("en")
	h := &harness{
		lookup:   &fakeLookup{outcome: domain.NotFound{}},
		settings: &fakeSettings{},
		gate:     &fakeGate{},
		reporter: &fakeReporter{},
	}
	h.bot = New(h.lookup, h.settings, h.gate, render.New(tr, nil), tr, time.Second)
	h.bot.Reporter = h.reporter
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.bot.now = func() time.Time { return fixed }
	return h
}

// ----- Interaction builders -----

func guildMember(id string, perms int64) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Permissions: perms}
}

func slashURL(guildID, u string) *discordgo.Interaction {
	i := &discordgo.Interaction{
		ID:        "i1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: "c1",
		Data: discordgo.ApplicationCommandInteractionData{
			Name:        CommandSauce,
			CommandType: discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: subURL,
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: optImageURL, Type: discordgo.ApplicationCommandOptionString, Value: u,
				}},
			}},
		},
	}
	if guildID != "" {
		i.Member = guildMember("u1", 0)
	} else {
		i.User = &discordgo.User{ID: "u1"}
	}
	return i
}

func messageCommand(msg *discordgo.Message) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i2",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "100",
		ChannelID: "c1",
		Member:    guildMember("u1", 0),
		Data: discordgo.ApplicationCommandInteractionData{
			Name:        CommandSauceMessage,
			CommandType: discordgo.MessageApplicationCommand,
			TargetID:    msg.ID,
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Messages: map[string]*discordgo.Message{msg.ID: msg},
			},
		},
	}
}

func componentSelect(customID, user, value string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i3",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "100",
		Member:  guildMember(user, 0),
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.SelectMenuComponent,
			Values:        []string{value},
		},
	}
}

func configInteraction(guildID string, member *discordgo.Member, key string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i4",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  member,
		User:    &discordgo.User{ID: "u1"},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: CommandConfig,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: subAPIKey,
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: optAPIKey, Type: discordgo.ApplicationCommandOptionString, Value: key,
				}},
			}},
		},
	}
}

// ----- Sauce commands -----

func TestSauceURL_FoundInGuild(t *testing.T) {
	h := newHarness(t)
	h.lookup.outcome = domain.GenericMatch{Match: domain.Match{Title: "Art", SourceURL: "https://src", IndexName: "Pixiv", Similarity: 90}}
	r := newFakeResponder()

	h.bot.Route(context.Background(), r, slashURL("100", " https://x/a.png "))

	responds, edits := r.snapshot()
	if len(responds) != 1 || responds[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected one deferred response, got %+v", responds)
	}
	if responds[0].Data == nil || responds[0].Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatalf("guild replies must be ephemeral")
	}
	if got := h.lookup.calls(); len(got) != 1 || got[0] != "https://x/a.png" || h.lookup.guilds[0] != 100 {
		t.Fatalf("lookup calls %v / %v", got, h.lookup.guilds)
	}
	if len(h.gate.commands) != 1 || !h.gate.commands[0] || h.gate.subjects[0].GuildID != "100" || h.gate.subjects[0].UserID != "u1" {
		t.Fatalf("gate not applied with the command layer: %+v %v", h.gate.subjects, h.gate.commands)
	}
	if len(edits) != 1 {
		t.Fatalf("edits = %d; want 1", len(edits))
	}
	e := (*edits[0].Embeds)[0]
	if e.Title != "Art" || e.URL != "https://src" {
		t.Fatalf("unexpected embed %+v", e)
	}
	if edits[0].Components == nil || len(*edits[0].Components) != 1 {
		t.Fatalf("expected one button row")
	}
}

func TestSauceURL_DirectMessage(t *testing.T) {
	h := newHarness(t)
	r := newFakeResponder()
	h.bot.Route(context.Background(), r, slashURL("", "https://x/a.png"))

	responds, _ := r.snapshot()
	if responds[0].Data != nil && responds[0].Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
		t.Fatalf("DM replies are not ephemeral")
	}
	if h.lookup.guilds[0] != domain.DMGuildID {
		t.Fatalf("DM lookups use the DM sentinel, got %d", h.lookup.guilds[0])
	}
	if h.gate.subjects[0].InGuild() {
		t.Fatalf("DM subject must not be in a guild")
	}
	if desc := r.lastDescription(t); !strings.Contains(desc, "search engines") {
		t.Fatalf("expected not-found advice, got %q", desc)
	}
}

func TestSauce_CooldownShortCircuits(t *testing.T) {
	h := newHarness(t)
	h.gate.err = &cooldown.ActiveError{Scope: cooldown.ScopeUser, RetryAfter: 5 * time.Minute}
	r := newFakeResponder()

	h.bot.Route(context.Background(), r, slashURL("100", "https://x/a.png"))

	if len(h.lookup.calls()) != 0 {
		t.Fatalf("lookup must not run during a cooldown")
	}
	want := "The sauce commands are on cooldown!\n\nPlease try again in `5 minutes`"
	if got := r.lastDescription(t); got != want {
		t.Fatalf("got %q; want %q", got, want)
	}
}

func TestSauce_CooldownStoreFailureFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.gate.err = errors.New("redis down")
	h.bot.Route(context.Background(), newFakeResponder(), slashURL("100", "https://x/a.png"))
	if len(h.lookup.calls()) != 1 {
		t.Fatalf("lookup should proceed when the cooldown store fails")
	}
}

func TestSauce_ErrorReplies(t *testing.T) {
	tr := lang.MustLoad("en")
	cases := []struct {
		err      error
		key      string
		reported bool
	}{
		{fmt.Errorf("%w: x", services.ErrRateLimitedUpstream), "api_limit_exceeded", false},
		{fmt.Errorf("%w: x", services.ErrInvalidCredential), "rejected_api_key", false},
		{fmt.Errorf("%w: x", services.ErrInvalidInput), "no_images", false},
		{fmt.Errorf("%w: x", services.ErrUpstreamUnavailable), "api_offline", true},
		{errors.New("db exploded"), "api_offline", true},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			h := newHarness(t)
			h.lookup.err = tc.err
			r := newFakeResponder()
			h.bot.Route(context.Background(), r, slashURL("100", "https://x/a.png"))

			if got := r.lastDescription(t); got != tr.T("Sauce", tc.key, nil) {
				t.Fatalf("got %q", got)
			}
			if (len(h.reporter.errs) > 0) != tc.reported {
				t.Fatalf("reported = %v; want %v", len(h.reporter.errs) > 0, tc.reported)
			}
		})
	}
}

func TestSauceFile_VideoUsesProxyFrame(t *testing.T) {
	h := newHarness(t)
	i := slashURL("100", "")
	i.Data = discordgo.ApplicationCommandInteractionData{
		Name: CommandSauce,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: subFile,
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: optImage, Type: discordgo.ApplicationCommandOptionAttachment, Value: "att1",
			}},
		}},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Attachments: map[string]*discordgo.MessageAttachment{
				"att1": {ID: "att1", URL: "https://cdn.discordapp.com/a/clip.mp4", ProxyURL: "https://media.discordapp.net/a/clip.mp4"},
			},
		},
	}
	h.bot.Route(context.Background(), newFakeResponder(), i)
	if got := h.lookup.calls(); len(got) != 1 || got[0] != "https://media.discordapp.net/a/clip.mp4?format=jpeg" {
		t.Fatalf("lookup urls %v", got)
	}
}

func TestSauceURL_EmptyURL(t *testing.T) {
	h := newHarness(t)
	r := newFakeResponder()
	h.bot.Route(context.Background(), r, slashURL("100", "  "))
	if len(h.lookup.calls()) != 0 || r.lastDescription(t) != h.bot.Lang.T("Sauce", "no_images", nil) {
		t.Fatalf("empty url should reply no_images")
	}
}

// ----- Message command -----

func TestMessageSauce_NoImages(t *testing.T) {
	h := newHarness(t)
	r := newFakeResponder()
	h.bot.Route(context.Background(), r, messageCommand(&discordgo.Message{ID: "m1"}))

	if len(h.lookup.calls()) != 0 {
		t.Fatalf("no lookup expected")
	}
	if h.gate.commands[0] {
		t.Fatalf("message commands use only the pipeline layer")
	}
	if r.lastDescription(t) != h.bot.Lang.T("Sauce", "no_images", nil) {
		t.Fatalf("unexpected reply")
	}
}

func TestMessageSauce_SingleImage(t *testing.T) {
	h := newHarness(t)
	msg := &discordgo.Message{ID: "m1", Attachments: []*discordgo.MessageAttachment{{URL: "https://cdn/a.png"}}}
	h.bot.Route(context.Background(), newFakeResponder(), messageCommand(msg))
	if got := h.lookup.calls(); len(got) != 1 || got[0] != "https://cdn/a.png" {
		t.Fatalf("lookup urls %v", got)
	}
}

func multiImageMessage() *discordgo.Message {
	return &discordgo.Message{
		ID: "m1",
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn/first.png"},
			{URL: "https://cdn/second.png"},
		},
		Embeds: []*discordgo.MessageEmbed{
			{URL: "https://site/post", Thumbnail: &discordgo.MessageEmbedThumbnail{URL: "https://site/thumb.jpg"}},
		},
	}
}

// waitForMenu blocks until the prompt edit shows up and returns its custom id.
func waitForMenu(t *testing.T, r *fakeResponder) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		_, edits := r.snapshot()
		for _, e := range edits {
			if e.Components == nil || len(*e.Components) == 0 {
				continue
			}
			row, ok := (*e.Components)[0].(discordgo.ActionsRow)
			if !ok || len(row.Components) == 0 {
				continue
			}
			if menu, ok := row.Components[0].(discordgo.SelectMenu); ok {
				return menu.CustomID
			}
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("select menu never shown")
		}
	}
}

func TestMessageSauce_MultipleImagesPrompt(t *testing.T) {
	h := newHarness(t)
	r := newFakeResponder()
	done := make(chan struct{})
	go func() {
		h.bot.Route(context.Background(), r, messageCommand(multiImageMessage()))
		close(done)
	}()

	id := waitForMenu(t, r)

	// Someone else cannot pick for the invoker.
	other := newFakeResponder()
	h.bot.Route(context.Background(), other, componentSelect(id, "intruder", "0"))
	if responds, _ := other.snapshot(); len(responds) != 1 || responds[0].Type != discordgo.InteractionResponseDeferredMessageUpdate {
		t.Fatalf("intruder should get a silent ack, got %+v", responds)
	}

	picker := newFakeResponder()
	h.bot.Route(context.Background(), picker, componentSelect(id, "u1", "2"))
	if responds, _ := picker.snapshot(); len(responds) != 1 || responds[0].Type != discordgo.InteractionResponseDeferredMessageUpdate {
		t.Fatalf("selection should be acknowledged, got %+v", responds)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("route did not finish after selection")
	}
	if got := h.lookup.calls(); len(got) != 1 || got[0] != "https://site/thumb.jpg" {
		t.Fatalf("lookup urls %v", got)
	}

	_, edits := r.snapshot()
	if len(edits) != 3 {
		t.Fatalf("edits = %d; want prompt, disable, result", len(edits))
	}
	menu := (*edits[1].Components)[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	if !menu.Disabled || len(menu.Options) != 3 || menu.Options[2].Label != "Image #3" {
		t.Fatalf("unexpected disabled menu %+v", menu)
	}
	if h.bot.prompts.size() != 0 {
		t.Fatalf("prompt not released")
	}
}

func TestMessageSauce_PromptTimeoutAbortsSilently(t *testing.T) {
	h := newHarness(t)
	h.bot.SelectTimeout = 20 * time.Millisecond
	r := newFakeResponder()

	h.bot.Route(context.Background(), r, messageCommand(multiImageMessage()))

	if len(h.lookup.calls()) != 0 {
		t.Fatalf("no lookup after a timeout")
	}
	_, edits := r.snapshot()
	if len(edits) != 2 || edits[1].Embeds != nil {
		t.Fatalf("expected prompt then disable only, got %d edits", len(edits))
	}
	if h.bot.prompts.size() != 0 {
		t.Fatalf("prompt not released")
	}

	// A late pick gets the timeout message.
	late := newFakeResponder()
	h.bot.Route(context.Background(), late, componentSelect(selectPrefix+"gone", "u1", "0"))
	responds, _ := late.snapshot()
	if len(responds) != 1 || responds[0].Data.Embeds[0].Description != h.bot.Lang.T("Errors", "interaction_timeout", nil) {
		t.Fatalf("late selection reply %+v", responds)
	}
}

// ----- Config and help -----

func TestConfig_Checks(t *testing.T) {
	h := newHarness(t)
	tr := h.bot.Lang

	r := newFakeResponder()
	h.bot.Route(context.Background(), r, configInteraction("", nil, "k"))
	responds, _ := r.snapshot()
	if len(responds) != 1 || responds[0].Data.Embeds[0].Description != tr.T("Errors", "guild_only", nil) {
		t.Fatalf("guild_only reply %+v", responds)
	}

	r = newFakeResponder()
	h.bot.Route(context.Background(), r, configInteraction("100", guildMember("u1", discordgo.PermissionManageMessages), "k"))
	responds, _ = r.snapshot()
	if len(responds) != 1 || !strings.Contains(responds[0].Data.Embeds[0].Description, "**Administrator**") {
		t.Fatalf("permission reply %+v", responds)
	}
	if len(h.settings.keys) != 0 {
		t.Fatalf("settings must not be called when checks fail")
	}
}

func TestConfig_RegistrationReplies(t *testing.T) {
	tr := lang.MustLoad("en")
	cases := []struct {
		err   error
		key   string
		color int
	}{
		{nil, "registered_api_key", render.ColorSuccess},
		{services.ErrInvalidKeyFormat, "bad_api_key", render.ColorError},
		{fmt.Errorf("%w: x", services.ErrKeyRejected), "rejected_api_key", render.ColorError},
		{services.ErrKeyIneligible, "api_free", render.ColorError},
		{errors.New("boom"), "api_offline", render.ColorError},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			h := newHarness(t)
			h.settings.err = tc.err
			r := newFakeResponder()
			h.bot.Route(context.Background(), r, configInteraction("100", guildMember("u1", discordgo.PermissionAdministrator), "abc"))

			_, edits := r.snapshot()
			e := (*edits[len(edits)-1].Embeds)[0]
			if e.Description != tr.T("Sauce", tc.key, nil) || e.Color != tc.color {
				t.Fatalf("got %q (%x)", e.Description, e.Color)
			}
			if len(h.settings.keys) != 1 || h.settings.keys[0] != "abc" {
				t.Fatalf("key not forwarded: %v", h.settings.keys)
			}
		})
	}
}

func TestHelp_ShowsQueryCount(t *testing.T) {
	h := newHarness(t)
	h.settings.count = 1234567
	r := newFakeResponder()
	h.bot.Route(context.Background(), r, &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: CommandHelp},
	})
	responds, _ := r.snapshot()
	if len(responds) != 1 {
		t.Fatalf("responds = %d", len(responds))
	}
	e := responds[0].Data.Embeds[0]
	if e.URL != PatreonURL || len(e.Fields) != 1 || e.Fields[0].Value != "```1,234,567```" {
		t.Fatalf("unexpected help embed %+v", e)
	}
}

func TestCommands_Definitions(t *testing.T) {
	type key struct {
		name string
		typ  discordgo.ApplicationCommandType
	}
	names := map[key]*discordgo.ApplicationCommand{}
	for _, c := range Commands() {
		typ := c.Type
		if typ == 0 {
			typ = discordgo.ChatApplicationCommand
		}
		names[key{c.Name, typ}] = c
	}
	for _, k := range []key{
		{CommandSauce, discordgo.ChatApplicationCommand},
		{"sauce", discordgo.MessageApplicationCommand},
		{CommandConfig, discordgo.ChatApplicationCommand},
		{CommandHelp, discordgo.ChatApplicationCommand},
	} {
		if names[k] == nil {
			t.Fatalf("missing command %+v", k)
		}
	}
	cfg := names[key{CommandConfig, discordgo.ChatApplicationCommand}]
	if cfg.DefaultMemberPermissions == nil || *cfg.DefaultMemberPermissions != discordgo.PermissionAdministrator || cfg.DMPermission == nil || *cfg.DMPermission {
		t.Fatalf("config must be admin-only and guild-only")
	}
}

type panickingLookup struct{}

func (panickingLookup) Lookup(context.Context, int64, string) (domain.Outcome, error) {
	panic("nil map write")
}

func TestRoute_PanicAfterDeferEditsApologyAndReports(t *testing.T) {
	h := newHarness(t)
	h.bot.Search = panickingLookup{}
	r := newFakeResponder()

	h.bot.Route(context.Background(), r, slashURL("100", "https://example.com/a.png"))

	responds, edits := r.snapshot()
	if len(responds) != 1 || responds[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected only the deferred ack, got %+v", responds)
	}
	if len(edits) != 1 {
		t.Fatalf("expected exactly one follow-up edit, got %d", len(edits))
	}
	if got := r.lastDescription(t); got != h.bot.Lang.T("Sauce", "api_offline", nil) {
		t.Fatalf("apology expected, got %q", got)
	}
	if len(h.reporter.errs) != 1 || !strings.Contains(h.reporter.errs[0].Error(), "nil map write") {
		t.Fatalf("panic not reported: %v", h.reporter.errs)
	}
}

type panickingSettings struct{ fakeSettings }

func (*panickingSettings) TotalQueryCount(context.Context) (int64, error) { panic("boom") }

func TestRoute_PanicBeforeReplyResponds(t *testing.T) {
	h := newHarness(t)
	h.bot.Settings = &panickingSettings{}
	r := newFakeResponder()

	h.bot.Route(context.Background(), r, &discordgo.Interaction{
		ID:      "i9",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "100",
		Member:  guildMember("u1", 0),
		Data:    discordgo.ApplicationCommandInteractionData{Name: CommandHelp, CommandType: discordgo.ChatApplicationCommand},
	})

	responds, edits := r.snapshot()
	if len(edits) != 0 || len(responds) != 1 {
		t.Fatalf("expected a single reply, got responds=%d edits=%d", len(responds), len(edits))
	}
	if d := responds[0].Data; d == nil || d.Flags != discordgo.MessageFlagsEphemeral || d.Embeds[0].Description != h.bot.Lang.T("Sauce", "api_offline", nil) {
		t.Fatalf("unexpected reply %+v", responds[0].Data)
	}
	if len(h.reporter.errs) != 1 {
		t.Fatalf("panic not reported")
	}
}
