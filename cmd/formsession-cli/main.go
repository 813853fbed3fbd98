// Command formsession-cli hosts an authoring session in the terminal. It is
// the reference host for the module: sections, drafts, and submission behave
// exactly as they would under a visual editor, with a JSON prompt standing in
// for the canvas.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"gopkg.in/yaml.v3"

	formsession "github.com/goliatone/go-formsession"
	"github.com/goliatone/go-formsession/pkg/session"
)

type config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"api"`
	Storage struct {
		Dir string `yaml:"dir"`
	} `yaml:"storage"`
	Draft struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"draft"`
	Session struct {
		AutoDowngrade bool `yaml:"auto_downgrade"`
	} `yaml:"session"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// jsonEditor is the terminal stand-in for the visual canvas: it holds the
// active fragment and hands it to a multiline prompt on demand.
type jsonEditor struct {
	current string
}

func (e *jsonEditor) Snapshot() (any, error) { return e.current, nil }

func (e *jsonEditor) Load(encoded string) error {
	e.current = encoded
	return nil
}

func (e *jsonEditor) edit() error {
	var updated string
	prompt := &survey.Multiline{
		Message: "Section content (JSON)",
		Default: e.current,
	}
	if err := survey.AskOne(prompt, &updated); err != nil {
		return err
	}
	e.current = updated
	return nil
}

// terminalNotifier renders controller messages the way a toast layer would.
type terminalNotifier struct{}

func (terminalNotifier) Info(msg string)    { fmt.Printf("  %s\n", msg) }
func (terminalNotifier) Success(msg string) { fmt.Printf("  ok: %s\n", msg) }
func (terminalNotifier) Warning(msg string) { fmt.Printf("  warning: %s\n", msg) }
func (terminalNotifier) Error(msg string)   { fmt.Printf("  error: %s\n", msg) }

func main() {
	configPath := flag.String("config", "formsession.yaml", "config file path")
	editID := flag.String("edit", "", "open an existing template for editing")
	duplicateID := flag.String("duplicate", "", "copy an existing template into a new one")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		cfg.Storage.Dir = filepath.Join(home, ".formsession")
	}

	mode := formsession.Create()
	switch {
	case *editID != "" && *duplicateID != "":
		log.Fatal("-edit and -duplicate are mutually exclusive")
	case *editID != "":
		mode = formsession.Edit(*editID)
	case *duplicateID != "":
		mode = formsession.Duplicate(*duplicateID)
	}

	store, err := formsession.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to open draft storage: %v", err)
	}

	editor := &jsonEditor{}
	opts := []formsession.Option{
		session.WithEditor(editor),
		session.WithDraftStore(store),
		session.WithNotifier(terminalNotifier{}),
		session.WithLogger(log.New(os.Stderr, "formsession: ", 0)),
		session.WithAutoDowngrade(cfg.Session.AutoDowngrade),
	}
	if cfg.Draft.Debounce > 0 {
		opts = append(opts, session.WithDebounce(cfg.Draft.Debounce))
	}
	if cfg.API.BaseURL != "" {
		client, err := formsession.NewHTTPClient(cfg.API.BaseURL, cfg.API.Token, 30*time.Second)
		if err != nil {
			log.Fatalf("Failed to build API client: %v", err)
		}
		opts = append(opts, session.WithClient(client))
	}

	ctrl, err := formsession.New(mode, opts...)
	if err != nil {
		log.Fatalf("Failed to build session: %v", err)
	}
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	if err := runLoop(ctx, ctrl, editor); err != nil {
		log.Fatalf("Session aborted: %v", err)
	}
}

func runLoop(ctx context.Context, ctrl *formsession.Controller, editor *jsonEditor) error {
	for ctrl.State() == session.StateReady {
		if ctrl.DialogOpen() {
			if done, err := saveDialog(ctx, ctrl); err != nil {
				return err
			} else if done {
				return nil
			}
			continue
		}

		action, err := pickAction(ctrl)
		if err != nil {
			return err
		}

		switch action {
		case "edit content":
			if err := editor.edit(); err != nil {
				return err
			}
			if err := ctrl.PullActiveSection(); err != nil {
				return err
			}
		case "switch section":
			if err := switchSection(ctrl); err != nil {
				return err
			}
		case "add section":
			name, err := askText("New section name")
			if err != nil {
				return err
			}
			if _, err := ctrl.AddSection(name); err != nil {
				fmt.Printf("  error: %v\n", err)
			}
		case "remove section":
			if err := removeSection(ctrl); err != nil {
				return err
			}
		case "rename section":
			name, err := askText("New name")
			if err != nil {
				return err
			}
			if err := ctrl.RenameSection(ctrl.ActiveSectionID(), name); err != nil {
				fmt.Printf("  error: %v\n", err)
			}
		case "toggle form type":
			if err := toggleFormType(ctrl); err != nil {
				return err
			}
		case "save":
			if err := ctrl.OpenSaveDialog(); err != nil {
				return err
			}
		case "clear":
			if err := ctrl.ClearForm(confirm("Discard the whole form?")); err != nil &&
				!errors.Is(err, session.ErrConfirmationDeclined) {
				return err
			}
		case "quit":
			ctrl.FlushDraft()
			return nil
		}
	}
	return nil
}

func pickAction(ctrl *formsession.Controller) (string, error) {
	doc := ctrl.Document()
	active := ctrl.ActiveSection()
	fmt.Printf("\n[%s] %q — section %d/%d: %s\n",
		doc.FormType, doc.TemplateName, active.Order, len(ctrl.Sections()), active.Name)

	var options []string
	if doc.FormType == formsession.TypeMultiStep {
		options = []string{"edit content", "switch section", "add section",
			"remove section", "rename section", "toggle form type", "save", "clear", "quit"}
	} else {
		options = []string{"edit content", "add section", "rename section",
			"toggle form type", "save", "clear", "quit"}
	}

	var action string
	err := survey.AskOne(&survey.Select{Message: "Action", Options: options}, &action)
	return action, err
}

func switchSection(ctrl *formsession.Controller) error {
	sections := ctrl.Sections()
	labels := make([]string, 0, len(sections))
	byLabel := make(map[string]string, len(sections))
	for _, sec := range sections {
		label := fmt.Sprintf("%d. %s", sec.Order, sec.Name)
		labels = append(labels, label)
		byLabel[label] = sec.ID
	}

	var picked string
	if err := survey.AskOne(&survey.Select{Message: "Switch to", Options: labels}, &picked); err != nil {
		return err
	}
	if err := ctrl.SwitchSection(byLabel[picked]); err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	return nil
}

func removeSection(ctrl *formsession.Controller) error {
	sections := ctrl.Sections()
	labels := make([]string, 0, len(sections))
	byLabel := make(map[string]string, len(sections))
	for _, sec := range sections {
		label := fmt.Sprintf("%d. %s", sec.Order, sec.Name)
		labels = append(labels, label)
		byLabel[label] = sec.ID
	}

	var picked string
	if err := survey.AskOne(&survey.Select{Message: "Remove", Options: labels}, &picked); err != nil {
		return err
	}
	if err := ctrl.RemoveSection(byLabel[picked]); err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	return nil
}

func toggleFormType(ctrl *formsession.Controller) error {
	target := formsession.TypeMultiStep
	if ctrl.Document().FormType == formsession.TypeMultiStep {
		target = formsession.TypeSingle
	}
	err := ctrl.ToggleFormType(target, confirm("Collapsing to single keeps only the first section. Continue?"))
	if err != nil && !errors.Is(err, session.ErrConfirmationDeclined) {
		return err
	}
	return nil
}

// saveDialog collects identity fields and submits. Returns true when the
// session closed (successful save).
func saveDialog(ctx context.Context, ctrl *formsession.Controller) (bool, error) {
	doc := ctrl.Document()

	name, err := askTextDefault("Template name", doc.TemplateName)
	if err != nil {
		return false, err
	}
	if err := ctrl.SetTemplateName(name); err != nil {
		return false, err
	}

	desc, err := askTextDefault("Description", doc.Description)
	if err != nil {
		return false, err
	}
	if err := ctrl.SetDescription(desc); err != nil {
		return false, err
	}

	var status string
	err = survey.AskOne(&survey.Select{
		Message: "Status",
		Options: []string{session.StatusDraft, session.StatusCompleted},
		Default: doc.Status,
	}, &status)
	if err != nil {
		return false, err
	}
	if err := ctrl.SetStatus(status); err != nil {
		return false, err
	}

	id, err := ctrl.Submit(ctx)
	if err != nil {
		for field, msgs := range ctrl.FieldErrors() {
			for _, msg := range msgs {
				fmt.Printf("  %s: %s\n", field, msg)
			}
		}
		if !submitRetry() {
			ctrl.CloseSaveDialog()
		}
		return false, nil
	}

	fmt.Printf("Saved as %s\n", id)
	return true, nil
}

func submitRetry() bool {
	keep := false
	if err := survey.AskOne(&survey.Confirm{Message: "Fix and retry?", Default: true}, &keep); err != nil {
		return false
	}
	return keep
}

func askText(message string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message}, &out)
	return out, err
}

func askTextDefault(message, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out)
	return out, err
}

func confirm(message string) func() bool {
	return func() bool {
		ok := false
		if err := survey.AskOne(&survey.Confirm{Message: message}, &ok); err != nil {
			return false
		}
		return ok
	}
}
