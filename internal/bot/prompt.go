package bot

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const selectPrefix = "sauce_select:"

var (
	errPromptExpired = errors.New("prompt expired")
	errPromptOwner   = errors.New("prompt belongs to another user")
)

type pending struct {
	owner string
	ch    chan string
}

// prompts tracks selection menus waiting for input, keyed by custom id.
type prompts struct {
	mu      sync.Mutex
	waiting map[string]*pending
}

func newPrompts() *prompts {
	return &prompts{waiting: make(map[string]*pending)}
}

// open registers a prompt for owner. The returned channel receives at most
// one value; cancel must be called once the caller stops waiting.
func (p *prompts) open(owner string) (customID string, choice <-chan string, cancel func()) {
	customID = selectPrefix + uuid.NewString()
	ch := make(chan string, 1)

	p.mu.Lock()
	p.waiting[customID] = &pending{owner: owner, ch: ch}
	p.mu.Unlock()

	return customID, ch, func() {
		p.mu.Lock()
		delete(p.waiting, customID)
		p.mu.Unlock()
	}
}

// resolve delivers value to the prompt behind customID.
func (p *prompts) resolve(customID, user, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.waiting[customID]
	if !ok {
		return errPromptExpired
	}
	if w.owner != "" && w.owner != user {
		return errPromptOwner
	}
	delete(p.waiting, customID)
	w.ch <- value
	return nil
}

func (p *prompts) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}

func isSelectID(customID string) bool { return strings.HasPrefix(customID, selectPrefix) }
