package session

import (
	"time"

	"github.com/goliatone/go-formsession/pkg/draft"
	"github.com/goliatone/go-formsession/pkg/remote"
	"github.com/goliatone/go-formsession/pkg/section"
)

// Option customises the controller.
type Option func(*Controller)

// WithEditor attaches the external visual editor. Required.
func WithEditor(editor Editor) Option {
	return func(c *Controller) {
		c.editor = editor
	}
}

// WithClient attaches the backend template client. Required for edit and
// duplicate sessions and for submit.
func WithClient(client remote.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// WithDraftStore supplies the durable key-value backend for the draft slot.
// Defaults to an in-memory store, which keeps the session functional but
// forfeits reload survival.
func WithDraftStore(store draft.Store) Option {
	return func(c *Controller) {
		c.draftStore = store
	}
}

// WithDraftKey overrides the draft slot key.
func WithDraftKey(key string) Option {
	return func(c *Controller) {
		c.draftKey = key
	}
}

// WithDebounce overrides the draft autosave debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithNotifier routes user-facing messages to the host.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger routes swallowed internal failures somewhere visible.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAutoDowngrade controls whether deleting down to one section flips the
// form type back to single automatically. Off by default.
func WithAutoDowngrade(enabled bool) Option {
	return func(c *Controller) {
		c.autoDowngrade = enabled
	}
}

// WithPullInterval enables a periodic pull of the active section into the
// store. Disabled by default: explicit user actions already trigger every
// pull the document needs, so the timer only duplicates them.
func WithPullInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pullInterval = d
	}
}

// WithContractValidation toggles the local OpenAPI contract check performed
// on save payloads before dispatch. On by default.
func WithContractValidation(enabled bool) Option {
	return func(c *Controller) {
		c.validateContract = enabled
	}
}

// WithSectionIDGenerator overrides section id generation, mainly for
// deterministic tests.
func WithSectionIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		c.idGen = gen
	}
}

// WithSeedSections pre-populates the section store, bypassing both the
// draft slot and the remote loader. Test hook.
func WithSeedSections(sections []section.Section) Option {
	return func(c *Controller) {
		c.seedSections = sections
	}
}
