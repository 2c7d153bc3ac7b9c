package handlers

import (
	"context"
	"crypto/ed25519"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/bot"
)

// Discord drops an interaction that is not answered within three seconds.
const defaultAckTimeout = 2500 * time.Millisecond

// editWait bounds how long a follow-up edit waits for the initial HTTP reply
// to leave the server.
const editWait = 5 * time.Second

// InteractionRouter handles one interaction to completion. *bot.Bot
// satisfies it.
type InteractionRouter interface {
	Route(ctx context.Context, r bot.Responder, i *discordgo.Interaction)
}

// Interactions serves the signed interactions webhook. The first reply of
// each interaction is written as the HTTP response; later edits go through
// REST.
type Interactions struct {
	PublicKey  ed25519.PublicKey
	Router     InteractionRouter
	REST       bot.Responder
	AckTimeout time.Duration
}

// Interact handles POST /interactions.
func (h *Handlers) Interact(c *gin.Context) {
	ix := h.interactions
	if ix == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "interactions endpoint disabled")
		return
	}
	if !discordgo.VerifyInteraction(c.Request, ix.PublicKey) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid request signature")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	var i discordgo.Interaction
	if err := sonic.Unmarshal(body, &i); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed interaction")
		return
	}

	if i.Type == discordgo.InteractionPing {
		ok(c, http.StatusOK, discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
		return
	}

	timeout := ix.AckTimeout
	if timeout <= 0 {
		timeout = defaultAckTimeout
	}
	resp := newHTTPResponder(ix.REST)

	// Routing outlives the request; keep its values (trace, logger) but not
	// its cancellation.
	go ix.Router.Route(context.WithoutCancel(c.Request.Context()), resp, &i)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var first *discordgo.InteractionResponse
	select {
	case first = <-resp.first:
	case <-timer.C:
		if resp.claim() {
			first = fallbackAck(&i)
			log.Warn().Str("interaction_id", i.ID).Msg("interaction not answered in time, sent deferred ack")
		} else {
			first = <-resp.first
		}
	}
	ok(c, http.StatusOK, first)
	resp.sent()
}

// fallbackAck is the placeholder sent when the router is too slow to answer.
func fallbackAck(i *discordgo.Interaction) *discordgo.InteractionResponse {
	if i.Type == discordgo.InteractionMessageComponent {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
}

// httpResponder hands the first reply to the waiting HTTP handler. Anything
// after that is sent through REST, once the HTTP reply has been written.
type httpResponder struct {
	rest  bot.Responder
	first chan *discordgo.InteractionResponse

	mu       sync.Mutex
	answered bool
	written  chan struct{}
	once     sync.Once
}

func newHTTPResponder(rest bot.Responder) *httpResponder {
	return &httpResponder{
		rest:    rest,
		first:   make(chan *discordgo.InteractionResponse, 1),
		written: make(chan struct{}),
	}
}

// claim marks the initial reply as taken. It reports false when the router
// got there first.
func (h *httpResponder) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.answered {
		return false
	}
	h.answered = true
	return true
}

func (h *httpResponder) sent() { h.once.Do(func() { close(h.written) }) }

func (h *httpResponder) waitSent() {
	select {
	case <-h.written:
	case <-time.After(editWait):
	}
}

func (h *httpResponder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	if h.claim() {
		h.first <- resp
		return nil
	}

	// The fallback ack went out instead; carry any content over as an edit.
	if resp.Data == nil || (len(resp.Data.Embeds) == 0 && resp.Data.Content == "") {
		return nil
	}
	edit := &discordgo.WebhookEdit{}
	if resp.Data.Content != "" {
		edit.Content = &resp.Data.Content
	}
	if len(resp.Data.Embeds) > 0 {
		edit.Embeds = &resp.Data.Embeds
	}
	if resp.Data.Components != nil {
		edit.Components = &resp.Data.Components
	}
	_, err := h.InteractionResponseEdit(i, edit, opts...)
	return err
}

func (h *httpResponder) InteractionResponseEdit(i *discordgo.Interaction, e *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	h.waitSent()
	return h.rest.InteractionResponseEdit(i, e, opts...)
}
