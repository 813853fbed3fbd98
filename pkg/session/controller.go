package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-formsession/pkg/draft"
	"github.com/goliatone/go-formsession/pkg/fragment"
	"github.com/goliatone/go-formsession/pkg/remote"
	"github.com/goliatone/go-formsession/pkg/section"
)

// Controller owns one authoring session: the document metadata, the section
// store, the active-section pointer, and the state machine gating every
// operation. Exactly one controller owns a document at a time; all entry
// points serialize on an internal mutex.
type Controller struct {
	mode EntryMode

	codec  *fragment.Codec
	store  *section.Store
	saver  *draft.Saver
	loader *remote.Loader

	client   remote.Client
	editor   Editor
	notifier Notifier
	logger   Logger

	draftStore draft.Store
	draftKey   string
	debounce   time.Duration

	autoDowngrade    bool
	pullInterval     time.Duration
	validateContract bool
	idGen            func() string
	seedSections     []section.Section

	mu          sync.Mutex
	state       State
	started     bool
	doc         Document
	activeID    string
	dialogOpen  bool
	fieldErrors remote.FieldErrors

	pullStop chan struct{}
}

// New builds a controller for the given entry mode. The editor is required;
// a backend client is required for edit and duplicate sessions.
func New(mode EntryMode, options ...Option) (*Controller, error) {
	c := &Controller{
		mode:             mode,
		notifier:         NopNotifier{},
		logger:           nopLogger{},
		draftKey:         draft.DefaultKey,
		debounce:         draft.DefaultDebounce,
		validateContract: true,
		state:            StateInitializing,
		doc:              defaultDocument(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	if c.editor == nil {
		return nil, fmt.Errorf("session: editor is required")
	}
	if !mode.IsCreate() && c.client == nil {
		return nil, fmt.Errorf("session: %s mode requires a backend client", mode)
	}
	if !mode.IsCreate() && mode.DocumentID() == "" {
		return nil, fmt.Errorf("session: %s mode requires a document id", mode)
	}
	if c.draftStore == nil {
		c.draftStore = draft.NewMemoryStore()
	}

	c.codec = fragment.NewCodec()

	var storeOpts []section.Option
	if c.idGen != nil {
		storeOpts = append(storeOpts, section.WithIDGenerator(c.idGen))
	}
	if len(c.seedSections) > 0 {
		storeOpts = append(storeOpts, section.WithSeed(c.seedSections))
	}
	c.store = section.NewStore(storeOpts...)
	c.activeID = c.store.First().ID

	c.saver = draft.NewSaver(c.draftStore,
		draft.WithKey(c.draftKey),
		draft.WithDebounce(c.debounce),
		draft.WithLogger(c.logger),
	)

	if c.client != nil {
		c.loader = remote.NewLoader(c.client)
	}
	return c, nil
}

// Start resolves the entry mode and hands the initial fragment to the
// editor, transitioning to Ready. Create mode restores the local draft if
// one exists; edit and duplicate load from the backend. A remote load
// failure is fatal: the session closes and the host should redirect.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("session: already started")
	}
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.started = true

	if c.mode.IsCreate() {
		c.restoreDraftLocked()
		c.state = StateReady
		c.startPullTimerLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Edit and duplicate are remote-authoritative: a stale local draft must
	// not shadow them.
	if err := c.saver.Clear(); err != nil {
		c.logger.Printf("session: clear draft: %v", err)
	}

	rmode := remote.ModeEdit
	if c.mode.IsDuplicate() {
		rmode = remote.ModeDuplicate
	}
	res, err := c.loader.Load(ctx, c.mode.DocumentID(), rmode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}
	if err != nil {
		c.state = StateClosed
		c.notifier.Error("Failed to load form data. Please try again.")
		return err
	}

	c.doc.TemplateName = res.TemplateName
	c.doc.Version = res.Version
	c.doc.Status = res.Status
	if c.doc.Status == "" {
		c.doc.Status = StatusDraft
	}
	c.doc.Description = res.Description
	c.doc.SheetURL = res.SheetURL
	c.doc.CustomerID = res.CustomerID
	c.doc.CustomerName = res.CustomerName
	c.doc.FormType = res.FormType

	c.store.Reset(res.Sections)
	c.activeID = c.store.First().ID
	c.pushToEditorLocked(c.store.First().Content)

	if res.PromptForIdentity {
		c.fieldErrors = nil
		c.dialogOpen = true
	}

	c.state = StateReady
	c.startPullTimerLocked()
	return nil
}

// restoreDraftLocked rehydrates create-mode state from the draft slot. The
// restoring flag stays raised until the editor has accepted the restored
// fragment, so no autosave can clobber the slot with stale memory.
func (c *Controller) restoreDraftLocked() {
	c.saver.BeginRestore()
	defer c.saver.EndRestore()

	rec, ok, err := c.saver.Load()
	if err != nil {
		c.logger.Printf("session: draft restore: %v", err)
	}
	if err != nil || !ok {
		c.pushToEditorLocked(c.store.First().Content)
		return
	}

	if rec.TemplateName != "" {
		c.doc.TemplateName = rec.TemplateName
	}
	if rec.CustomerID != 0 {
		c.doc.CustomerID = rec.CustomerID
	}
	if rec.CustomerName != "" {
		c.doc.CustomerName = rec.CustomerName
	}
	if rec.SheetURL != "" {
		c.doc.SheetURL = rec.SheetURL
	}
	if rec.Description != "" {
		c.doc.Description = rec.Description
	}
	if rec.Status != "" {
		c.doc.Status = rec.Status
	}
	if len(rec.Sections) > 0 {
		c.store.Reset(rec.Sections)
	}
	switch {
	case rec.FormType != "":
		c.doc.FormType = rec.FormType
	case c.store.Len() > 1:
		// Drafts written before form_type existed can still carry several
		// sections; N sections can only mean multi-step.
		c.doc.FormType = section.TypeMultiStep
	}

	c.activeID = c.store.First().ID
	if _, ok := c.store.Get(rec.ActiveSection); ok {
		c.activeID = rec.ActiveSection
	}

	if sec, ok := c.store.Get(c.activeID); ok {
		c.pushToEditorLocked(sec.Content)
	}
	c.notifier.Info("Draft restored from previous session")
}

// PullActiveSection snapshots the editor through the codec and writes the
// result into the active section. Callers that read the whole document
// (switching, renaming, saving) go through here first so the store never
// holds stale content for the section on screen.
func (c *Controller) PullActiveSection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}
	c.pullActiveLocked()
	return nil
}

// SwitchSection pulls the current section, moves the active pointer, then
// pushes the target's stored fragment into the editor. Pull completes
// before push begins; that ordering is what keeps edits from being lost.
func (c *Controller) SwitchSection(targetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}

	target, ok := c.store.Get(targetID)
	if !ok {
		return fmt.Errorf("session: section %q not found", targetID)
	}
	if targetID == c.activeID {
		return nil
	}

	c.pullActiveLocked()
	c.activeID = targetID
	c.pushToEditorLocked(target.Content)
	c.autosaveLocked()
	return nil
}

// AddSection creates a section with the given name, flips the document to
// multi-step, and makes the new section active. Returns the new id.
func (c *Controller) AddSection(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return "", err
	}

	id, err := c.store.Add(sanitizeText(name))
	if err != nil {
		return "", err
	}
	if c.store.Len() > 1 {
		c.doc.FormType = section.TypeMultiStep
	}

	c.pullActiveLocked()
	c.activeID = id
	c.pushToEditorLocked(fragment.DefaultDocument)
	c.autosaveLocked()
	return id, nil
}

// RemoveSection deletes a section. Deleting the active section activates
// the first remaining one. Whether reaching a single section downgrades the
// form type is a host decision (WithAutoDowngrade); it defaults to no.
func (c *Controller) RemoveSection(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}

	if err := c.store.Remove(id); err != nil {
		return err
	}

	if id == c.activeID {
		first := c.store.First()
		c.activeID = first.ID
		c.pushToEditorLocked(first.Content)
	}
	if c.autoDowngrade && c.store.Len() == 1 {
		c.doc.FormType = section.TypeSingle
	}
	c.autosaveLocked()
	return nil
}

// RenameSection updates a section's name. Renaming the active section
// pulls and re-pushes its content around the metadata change: editors that
// key internal state by name must never observe a rename as content loss.
func (c *Controller) RenameSection(id, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}

	clean := sanitizeText(newName)
	if id != c.activeID {
		if err := c.store.Rename(id, clean); err != nil {
			return err
		}
		c.autosaveLocked()
		return nil
	}

	c.pullActiveLocked()
	if err := c.store.Rename(id, clean); err != nil {
		return err
	}
	if sec, ok := c.store.Get(id); ok {
		c.pushToEditorLocked(sec.Content)
	}
	c.autosaveLocked()
	return nil
}

// ToggleFormType switches between single and multi-step. Multi-step to
// single with more than one section is destructive and requires the confirm
// callback to return true.
func (c *Controller) ToggleFormType(target section.FormType, confirm func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}
	if target == c.doc.FormType {
		return nil
	}

	switch target {
	case section.TypeMultiStep:
		c.doc.FormType = section.TypeMultiStep
	case section.TypeSingle:
		if c.store.Len() > 1 {
			if confirm == nil || !confirm() {
				return ErrConfirmationDeclined
			}
			c.pullActiveLocked()
			c.store.ReduceToSingle()
			first := c.store.First()
			c.activeID = first.ID
			c.pushToEditorLocked(first.Content)
		}
		c.doc.FormType = section.TypeSingle
	default:
		return fmt.Errorf("session: unknown form type %q", target)
	}

	c.autosaveLocked()
	return nil
}

// SetTemplateName updates the template name, clearing any pending field
// error for it.
func (c *Controller) SetTemplateName(name string) error {
	return c.setField(func() {
		c.doc.TemplateName = sanitizeText(name)
		delete(c.fieldErrors, "template_name")
	})
}

// SetCustomer records the customer selection.
func (c *Controller) SetCustomer(id int, name string) error {
	return c.setField(func() {
		c.doc.CustomerID = id
		c.doc.CustomerName = sanitizeText(name)
		delete(c.fieldErrors, "customer")
	})
}

// SetSheetURL records the backing sheet reference.
func (c *Controller) SetSheetURL(url string) error {
	return c.setField(func() {
		c.doc.SheetURL = sanitizeText(url)
		delete(c.fieldErrors, "sheet_url")
	})
}

// SetDescription updates the description.
func (c *Controller) SetDescription(desc string) error {
	return c.setField(func() {
		c.doc.Description = sanitizeText(desc)
	})
}

// SetStatus updates the document status.
func (c *Controller) SetStatus(status string) error {
	return c.setField(func() {
		c.doc.Status = status
		delete(c.fieldErrors, "status")
	})
}

func (c *Controller) setField(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}
	apply()
	c.autosaveLocked()
	return nil
}

// OpenSaveDialog pulls the active section and then reveals the save form,
// so the assembled preview matches what the author currently sees. The
// dialog state flips only after the pull has committed to the store.
func (c *Controller) OpenSaveDialog() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}
	c.pullActiveLocked()
	c.fieldErrors = nil
	c.dialogOpen = true
	return nil
}

// CloseSaveDialog hides the save form without submitting.
func (c *Controller) CloseSaveDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialogOpen = false
}

// Submit validates, pulls the active section, assembles the payload, and
// dispatches create or update depending on the entry mode. On success the
// draft slot is cleared (create only) and the session closes. On failure
// the session stays Ready, the dialog stays open, field errors surface, and
// the draft survives.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if err := c.ensureReadyLocked(); err != nil {
		c.mu.Unlock()
		return "", err
	}
	if c.client == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("session: submit requires a backend client")
	}

	c.doc.TemplateName = sanitizeText(c.doc.TemplateName)
	if c.doc.TemplateName == "" {
		c.mu.Unlock()
		c.notifier.Error("Template name is required")
		return "", ErrTemplateNameRequired
	}

	c.pullActiveLocked()
	c.fieldErrors = nil
	payload := c.assemblePayloadLocked()

	if c.validateContract {
		if err := remote.ValidatePayload(ctx, payload); err != nil {
			c.applySubmitFailureLocked(err)
			c.mu.Unlock()
			return "", err
		}
	}

	c.state = StateSaving
	isEdit := c.mode.IsEdit()
	remoteID := c.mode.DocumentID()
	c.mu.Unlock()

	var rec remote.Record
	var err error
	if isEdit {
		rec, err = c.client.Update(ctx, remoteID, payload)
	} else {
		rec, err = c.client.Create(ctx, payload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		// The session navigated away mid-flight; the response is ignored.
		return "", ErrClosed
	}

	if err != nil {
		c.state = StateReady
		c.applySubmitFailureLocked(err)
		return "", err
	}

	c.doc.Version = rec.Version
	if c.mode.IsCreate() {
		if clearErr := c.saver.Clear(); clearErr != nil {
			c.logger.Printf("session: clear draft after submit: %v", clearErr)
		}
	}
	c.dialogOpen = false
	c.closeLocked()

	if isEdit {
		c.notifier.Success("Form updated successfully!")
	} else {
		c.notifier.Success("Form saved successfully!")
	}
	return rec.ID, nil
}

func (c *Controller) applySubmitFailureLocked(err error) {
	var submitErr *remote.SubmitError
	if errors.As(err, &submitErr) && len(submitErr.Fields) > 0 {
		c.fieldErrors = submitErr.Fields
		c.notifier.Error("Please fix the highlighted fields")
		return
	}
	c.notifier.Error("Failed to save form. Please try again.")
}

// ClearForm resets a create or duplicate session to the default document.
// Edit sessions refuse: the author should navigate back instead. Requires
// confirmation since unsaved changes are discarded.
func (c *Controller) ClearForm(confirm func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureReadyLocked(); err != nil {
		return err
	}
	if c.mode.IsEdit() {
		c.notifier.Warning("Cannot clear form in edit mode. Use back instead.")
		return nil
	}
	if confirm == nil || !confirm() {
		return ErrConfirmationDeclined
	}

	c.doc = defaultDocument()
	c.store.Reset(nil)
	c.activeID = c.store.First().ID
	c.fieldErrors = nil
	c.dialogOpen = false

	if err := c.saver.Clear(); err != nil {
		c.logger.Printf("session: clear draft: %v", err)
	}
	c.pushToEditorLocked(fragment.DefaultDocument)
	c.notifier.Success("Form cleared")
	return nil
}

// FlushDraft writes any pending draft immediately. Hosts call this from
// their unload hook; best effort only.
func (c *Controller) FlushDraft() {
	c.saver.Flush()
}

// Close ends the session. Pending draft writes are flushed first; remote
// responses that arrive afterwards are discarded.
func (c *Controller) Close() {
	c.saver.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	if c.pullStop != nil {
		close(c.pullStop)
		c.pullStop = nil
	}
}

// State reports the controller's lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode reports how the session was entered.
func (c *Controller) Mode() EntryMode {
	return c.mode
}

// Document returns a copy of the document metadata.
func (c *Controller) Document() Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Sections returns the ordered section list.
func (c *Controller) Sections() []section.Section {
	return c.store.Sections()
}

// ActiveSectionID reports which section the editor currently mirrors.
func (c *Controller) ActiveSectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// ActiveSection returns the active section as stored. Call
// PullActiveSection first when the latest editor state matters.
func (c *Controller) ActiveSection() section.Section {
	c.mu.Lock()
	id := c.activeID
	c.mu.Unlock()

	sec, ok := c.store.Get(id)
	if !ok {
		return c.store.First()
	}
	return sec
}

// DialogOpen reports whether the save dialog is showing.
func (c *Controller) DialogOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogOpen
}

// FieldErrors returns a copy of the current field-level submit errors.
func (c *Controller) FieldErrors() remote.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fieldErrors) == 0 {
		return nil
	}
	out := remote.FieldErrors{}
	for k, v := range c.fieldErrors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (c *Controller) ensureReadyLocked() error {
	switch c.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

func (c *Controller) pullActiveLocked() {
	raw, err := c.editor.Snapshot()
	if err != nil {
		// The stored fragment stays authoritative; losing one pull beats
		// writing garbage over good content.
		c.logger.Printf("session: editor snapshot: %v", err)
		return
	}
	encoded := c.codec.Encode(raw)
	if err := c.store.SetContent(c.activeID, encoded); err != nil {
		c.logger.Printf("session: store active section: %v", err)
	}
}

func (c *Controller) pushToEditorLocked(encoded string) {
	if err := c.editor.Load(encoded); err != nil {
		c.logger.Printf("session: editor rejected fragment: %v", err)
	}
}

func (c *Controller) autosaveLocked() {
	if !c.mode.IsCreate() {
		return
	}
	c.saver.Save(c.recordLocked())
}

func (c *Controller) recordLocked() draft.Record {
	return draft.Record{
		TemplateName:  c.doc.TemplateName,
		CustomerID:    c.doc.CustomerID,
		CustomerName:  c.doc.CustomerName,
		SheetURL:      c.doc.SheetURL,
		Description:   c.doc.Description,
		Status:        c.doc.Status,
		FormType:      c.doc.FormType,
		Sections:      c.store.Sections(),
		ActiveSection: c.activeID,
	}
}

func (c *Controller) assemblePayloadLocked() remote.Payload {
	payload := remote.Payload{
		TemplateName: c.doc.TemplateName,
		CustomerID:   c.doc.CustomerID,
		CustomerName: c.doc.CustomerName,
		SheetURL:     c.doc.SheetURL,
		Status:       c.doc.Status,
		Description:  c.doc.Description,
	}
	if payload.Status == "" {
		payload.Status = StatusDraft
	}

	sections := c.store.Sections()
	if c.doc.FormType == section.TypeSingle {
		payload.FormJSON = c.decodeOrDefault(sections[0].Content)
		return payload
	}

	multi := remote.MultiStepForm{Sections: make([]remote.PayloadSection, 0, len(sections))}
	for _, sec := range sections {
		multi.Sections = append(multi.Sections, remote.PayloadSection{
			SectionID:   sec.ID,
			SectionName: sec.Name,
			Order:       sec.Order,
			FormJSON:    c.decodeOrDefault(sec.Content),
		})
	}
	payload.FormJSON = multi
	return payload
}

func (c *Controller) decodeOrDefault(encoded string) any {
	decoded, err := c.codec.Decode(encoded)
	if err == nil {
		return decoded
	}
	c.logger.Printf("session: undecodable fragment replaced with default: %v", err)
	decoded, _ = c.codec.Decode(fragment.DefaultDocument)
	return decoded
}

func (c *Controller) startPullTimerLocked() {
	if c.pullInterval <= 0 {
		return
	}
	c.pullStop = make(chan struct{})
	stop := c.pullStop
	interval := c.pullInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				if c.state == StateReady {
					c.pullActiveLocked()
				}
				c.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}
