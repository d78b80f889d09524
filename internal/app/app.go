package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rebeliceyang/sequel/internal/config"
	"github.com/rebeliceyang/sequel/internal/export"
	"github.com/rebeliceyang/sequel/internal/favorites"
	"github.com/rebeliceyang/sequel/internal/logger"
	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/session"
	"github.com/rebeliceyang/sequel/internal/ui/components"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// focusArea is the panel receiving key input
type focusArea int

const (
	focusConnections focusArea = iota
	focusDatabases
	focusTree
	focusEditor
	focusResults
	focusCount
)

const (
	listConnections = "connections"
	listDatabases   = "databases"
	listFavorites   = "favorites"
)

// Options configures an App
type Options struct {
	Config    *config.Config
	Logger    *logger.Logger
	ExportDir string
	// CopyText defaults to the system clipboard
	CopyText func(string) error
	// Favorites backs the saved query picker; nil disables it
	Favorites SavedQueries
}

// SavedQueries is the part of the favorites store the app uses
type SavedQueries interface {
	List() []favorites.Favorite
	RecordUsage(name string) error
}

// App is the main application model. It renders session snapshots and
// turns key input into session commands run off the update loop.
type App struct {
	sess        *session.Session
	snap        session.Snapshot
	updates     <-chan session.Snapshot
	unsubscribe func()

	config    *config.Config
	theme     theme.Theme
	log       *logger.Logger
	timeout   time.Duration
	exportDir string
	copyText  func(string) error

	width         int
	height        int
	focus         focusArea
	showHelp      bool
	showForm      bool
	showFavorites bool

	connections *components.ListView
	databases   *components.ListView
	tree        *components.TreeView
	tabBar      *components.TabBar
	table       *components.TableView
	snackbar    *components.Snackbar
	form        *components.ConnectionForm
	editor      textarea.Model
	editorTabID string

	saved    SavedQueries
	savedFav []favorites.Favorite
	favList  *components.ListView

	lastNotice models.AppSnackbar
	noticeSeq  int
}

// snapshotMsg delivers a new session state
type snapshotMsg session.Snapshot

// opDoneMsg reports the end of a session command
type opDoneMsg struct {
	op  string
	err error
}

// hideNoticeMsg hides the notification shown as number seq
type hideNoticeMsg struct {
	seq int
}

// New creates a new App on top of sess and opens the first query tab
func New(sess *session.Session, opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	copyText := opts.CopyText
	if copyText == nil {
		copyText = clipboard.WriteAll
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	th := theme.GetTheme(cfg.UI.Theme)

	editor := textarea.New()
	editor.Placeholder = "Write a query…"
	editor.ShowLineNumbers = true
	editor.CharLimit = 0

	a := &App{
		sess:        sess,
		config:      cfg,
		theme:       th,
		log:         log.WithComponent("app"),
		timeout:     cfg.API.TimeoutDuration(),
		exportDir:   exportDir,
		copyText:    copyText,
		connections: components.NewListView(listConnections, "No connections  [a] add", th),
		databases:   components.NewListView(listDatabases, "No databases", th),
		tree:        components.NewTreeView(th),
		tabBar:      components.NewTabBar(th),
		table:       components.NewTableView(th),
		snackbar:    components.NewSnackbar(th),
		form:        components.NewConnectionForm(th),
		saved:       opts.Favorites,
		favList:     components.NewListView(listFavorites, "No saved queries", th),
		editor:      editor,
	}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}

	if len(sess.Snapshot().Tabs) == 0 {
		sess.OpenTab()
	}
	a.updates, a.unsubscribe = sess.Subscribe()
	a.applySnapshot(sess.Snapshot())

	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.waitForSnapshot(),
		a.run("load connections", a.sess.RefreshConnections),
	)
}

// Close stops the snapshot subscription
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *App) waitForSnapshot() tea.Cmd {
	ch := a.updates
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

// run executes a session command with the configured timeout. Failures are
// already surfaced by the session as notifications.
func (a *App) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	timeout := a.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case snapshotMsg:
		cmd := a.applySnapshot(session.Snapshot(msg))
		return a, tea.Batch(cmd, a.waitForSnapshot())

	case hideNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.sess.HideNotification()
			return a, a.refresh()
		}
		return a, nil

	case opDoneMsg:
		if msg.err == nil {
			return a, nil
		}
		a.log.Debug("command failed", "op", msg.op, "error", msg.err)
		if hint := preconditionHint(msg.err); hint != "" {
			a.sess.ShowNotification(models.AppSnackbar{Message: hint, Color: models.ColorWarning})
			return a, a.refresh()
		}
		return a, nil

	case components.ListItemSelectedMsg:
		return a, a.selectListItem(msg)

	case components.TreeNodeExpandMsg:
		id := msg.ID
		return a, a.run("expand", func(ctx context.Context) error {
			return a.sess.Expand(ctx, id)
		})

	case components.TreeNodeSelectedMsg:
		if err := a.sess.SetActiveNode(msg.ID); err != nil {
			a.log.Debug("select node", "node", msg.ID, "error", err)
		}
		return a, a.refresh()

	case components.ConnectionFormSubmitMsg:
		a.showForm = false
		conn := msg.Connection
		return a, a.run("add connection", func(ctx context.Context) error {
			return a.sess.AddConnection(ctx, conn)
		})

	case components.ConnectionFormTestMsg:
		conn := msg.Connection
		return a, a.run("test connection", func(ctx context.Context) error {
			return a.sess.TestConnection(ctx, conn)
		})

	case components.ConnectionFormCancelMsg:
		a.showForm = false
		a.sess.SetEditDraft(nil)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.focus == focusEditor {
		var cmd tea.Cmd
		a.editor, cmd = a.editor.Update(msg)
		return a, cmd
	}
	return a, nil
}

// preconditionHint explains errors the session rejects before calling the
// backend; those carry no notification of their own.
func preconditionHint(err error) string {
	switch {
	case errors.Is(err, session.ErrNoActiveTab):
		return "Open a query tab first."
	case errors.Is(err, session.ErrNoActiveConnection):
		return "Select a connection first."
	case errors.Is(err, session.ErrNoActiveDatabase):
		return "Select a database first."
	}
	return ""
}

// refresh applies the current session state without waiting for the
// subscription to deliver it.
func (a *App) refresh() tea.Cmd {
	return a.applySnapshot(a.sess.Snapshot())
}

// applySnapshot refreshes every view from s. It returns the auto-hide timer
// when a new notification appeared.
func (a *App) applySnapshot(s session.Snapshot) tea.Cmd {
	a.snap = s

	items := make([]components.ListItem, len(s.Connections))
	for i, c := range s.Connections {
		items[i] = components.ListItem{
			Label:  c.DisplayName(),
			Detail: c.DBMS.String(),
			Active: s.ActiveConnection != nil && s.ActiveConnection.ID == c.ID,
		}
	}
	a.connections.SetItems(items)

	dbs := make([]components.ListItem, len(s.Databases))
	for i, name := range s.Databases {
		dbs[i] = components.ListItem{Label: name, Active: name == s.ActiveDatabase}
	}
	a.databases.SetItems(dbs)

	a.tree.SetNodes(s.Nodes, s.ActiveNode)

	if tab, ok := s.ActiveTabContent(); ok {
		if tab.ID != a.editorTabID {
			a.editorTabID = tab.ID
			a.editor.SetValue(tab.Editor)
		}
		a.table.SetResult(tab.Result)
	} else {
		a.editorTabID = ""
		a.editor.Reset()
		a.table.SetResult(nil)
	}

	var cmd tea.Cmd
	if s.Notification.Show && s.Notification != a.lastNotice {
		a.noticeSeq++
		if d := a.config.UI.SnackbarTimeout(); d > 0 {
			seq := a.noticeSeq
			cmd = tea.Tick(d, func(time.Time) tea.Msg { return hideNoticeMsg{seq: seq} })
		}
	}
	a.lastNotice = s.Notification
	return cmd
}

func (a *App) selectListItem(msg components.ListItemSelectedMsg) tea.Cmd {
	switch msg.List {
	case listConnections:
		if msg.Index < 0 || msg.Index >= len(a.snap.Connections) {
			return nil
		}
		conn := a.snap.Connections[msg.Index]
		a.focus = focusDatabases
		return a.run("activate connection", func(ctx context.Context) error {
			return a.sess.SetActiveConnection(ctx, &conn)
		})

	case listFavorites:
		a.showFavorites = false
		if msg.Index < 0 || msg.Index >= len(a.savedFav) {
			return nil
		}
		return a.openSavedQuery(a.savedFav[msg.Index])

	case listDatabases:
		if msg.Index < 0 || msg.Index >= len(a.snap.Databases) {
			return nil
		}
		name := a.snap.Databases[msg.Index]
		a.focus = focusTree
		return a.run("activate database", func(ctx context.Context) error {
			return a.sess.SetActiveDatabase(ctx, name)
		})
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	if a.showForm {
		var cmd tea.Cmd
		a.form, cmd = a.form.Update(msg)
		return a, cmd
	}

	if a.showHelp {
		switch key {
		case "?", "esc", "q":
			a.showHelp = false
		}
		return a, nil
	}

	if a.showFavorites {
		if key == "esc" || key == "ctrl+o" {
			a.showFavorites = false
			return a, nil
		}
		var cmd tea.Cmd
		a.favList, cmd = a.favList.Update(msg)
		return a, cmd
	}

	switch key {
	case "ctrl+t":
		a.sess.OpenTab()
		a.setFocus(focusEditor)
		return a, a.refresh()
	case "ctrl+w":
		if a.snap.ActiveTab >= 0 {
			if err := a.sess.CloseTab(a.snap.ActiveTab); err != nil {
				a.log.Debug("close tab", "error", err)
			}
		}
		return a, a.refresh()
	case "ctrl+n", "ctrl+p":
		return a, a.cycleTab(key == "ctrl+n")
	case "f5", "ctrl+e":
		return a, a.run("execute", func(ctx context.Context) error {
			_, err := a.sess.ExecuteActiveTab(ctx)
			return err
		})
	case "ctrl+o":
		return a, a.openFavorites()
	case "ctrl+y":
		return a, a.copyEditor()
	case "ctrl+s":
		return a, a.exportResult(export.FormatCSV)
	case "ctrl+g":
		return a, a.exportResult(export.FormatJSON)
	case "shift+tab":
		a.setFocus((a.focus + focusCount - 1) % focusCount)
		return a, nil
	case "esc":
		if a.snap.Notification.Show {
			a.sess.HideNotification()
			return a, a.refresh()
		}
		if a.focus == focusEditor {
			a.setFocus(focusResults)
		}
		return a, nil
	}

	if a.focus == focusEditor {
		return a, a.updateEditor(msg)
	}

	switch key {
	case "q":
		a.Close()
		return a, tea.Quit
	case "?":
		a.showHelp = true
		return a, nil
	case "tab":
		a.setFocus((a.focus + 1) % focusCount)
		return a, nil
	}

	var cmd tea.Cmd
	switch a.focus {
	case focusConnections:
		cmd = a.handleConnectionKey(msg)
	case focusDatabases:
		if key == "r" {
			return a, a.run("load databases", a.sess.RefreshDatabases)
		}
		a.databases, cmd = a.databases.Update(msg)
	case focusTree:
		if key == "r" {
			return a, a.run("load objects", a.sess.RefreshRoots)
		}
		a.tree, cmd = a.tree.Update(msg)
	case focusResults:
		cmd = a.handleResultKey(key)
	}
	return a, cmd
}

func (a *App) handleConnectionKey(msg tea.KeyMsg) tea.Cmd {
	var selected *models.ServerConnection
	if i := a.connections.Cursor; i >= 0 && i < len(a.snap.Connections) {
		c := a.snap.Connections[i]
		selected = &c
	}

	switch msg.String() {
	case "a":
		a.sess.SetEditDraft(nil)
		a.form.Reset(nil)
		a.showForm = true
		return nil
	case "e":
		if selected == nil {
			return nil
		}
		a.sess.SetEditDraft(selected)
		a.form.Reset(selected)
		a.showForm = true
		return nil
	case "t":
		if selected == nil {
			return nil
		}
		conn := *selected
		return a.run("test connection", func(ctx context.Context) error {
			return a.sess.TestConnection(ctx, conn)
		})
	case "d":
		if selected == nil {
			return nil
		}
		id := selected.ID
		return a.run("delete connection", func(ctx context.Context) error {
			return a.sess.DeleteConnection(ctx, id)
		})
	case "r":
		return a.run("load connections", a.sess.RefreshConnections)
	}

	var cmd tea.Cmd
	a.connections, cmd = a.connections.Update(msg)
	return cmd
}

func (a *App) handleResultKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		a.table.MoveSelection(-1)
	case "down", "j":
		a.table.MoveSelection(1)
	case "ctrl+u":
		a.table.PageUp()
	case "ctrl+d":
		a.table.PageDown()
	case "y":
		row := a.table.SelectedRowValues()
		if row == nil {
			return nil
		}
		return a.copy(strings.Join(row, "\t"), "Row copied to clipboard.")
	}
	return nil
}

// updateEditor feeds a key to the editor and pushes the new text into the
// active tab, matched by tab id.
func (a *App) updateEditor(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	if msg.String() == "tab" {
		a.editor.InsertString(strings.Repeat(" ", max(a.config.Editor.TabSize, 1)))
	} else {
		a.editor, cmd = a.editor.Update(msg)
	}

	tab, ok := a.snap.ActiveTabContent()
	if !ok || tab.ID != a.editorTabID {
		return cmd
	}
	if value := a.editor.Value(); value != tab.Editor {
		tab.Editor = value
		a.sess.UpdateTabContent(tab)
	}
	return cmd
}

func (a *App) cycleTab(forward bool) tea.Cmd {
	n := len(a.snap.Tabs)
	if n == 0 {
		return nil
	}
	next := a.snap.ActiveTab
	if forward {
		next = (next + 1) % n
	} else {
		next = (next - 1 + n) % n
	}
	if err := a.sess.SetActiveTab(next); err != nil {
		a.log.Debug("switch tab", "error", err)
	}
	return a.refresh()
}

func (a *App) setFocus(f focusArea) {
	a.focus = f
	if f == focusEditor {
		a.editor.Focus()
	} else {
		a.editor.Blur()
	}
}

// openFavorites shows the saved query picker
func (a *App) openFavorites() tea.Cmd {
	if a.saved != nil {
		a.savedFav = a.saved.List()
	}
	if len(a.savedFav) == 0 {
		a.sess.ShowNotification(models.AppSnackbar{Message: "No saved queries.", Color: models.ColorInfo})
		return a.refresh()
	}

	items := make([]components.ListItem, len(a.savedFav))
	for i, f := range a.savedFav {
		detail := f.Database
		if f.Description != "" {
			detail = f.Description
		}
		items[i] = components.ListItem{Label: f.Name, Detail: detail}
	}
	a.favList.SetItems(items)
	a.favList.Cursor = 0
	a.showFavorites = true
	return nil
}

// openSavedQuery opens the query of fav in a new tab
func (a *App) openSavedQuery(fav favorites.Favorite) tea.Cmd {
	tab := a.sess.OpenTab()
	tab.Editor = fav.Query
	a.sess.UpdateTabContent(tab)
	a.setFocus(focusEditor)

	if err := a.saved.RecordUsage(fav.Name); err != nil {
		a.log.Warn("failed to record favorite usage", "name", fav.Name, "error", err)
	}
	return a.refresh()
}

func (a *App) copyEditor() tea.Cmd {
	text, ok := a.sess.ActiveEditor()
	if !ok || text == "" {
		return nil
	}
	return a.copy(text, "Query copied to clipboard.")
}

func (a *App) copy(text, done string) tea.Cmd {
	copyText := a.copyText
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			a.sess.ShowNotification(models.AppSnackbar{
				Message: fmt.Sprintf("Copy failed: %v", err),
				Color:   models.ColorError,
				Error:   true,
			})
			return opDoneMsg{op: "copy", err: err}
		}
		a.sess.ShowNotification(models.AppSnackbar{Message: done, Color: models.ColorInfo})
		return opDoneMsg{op: "copy"}
	}
}

func (a *App) exportResult(format export.Format) tea.Cmd {
	tab, ok := a.snap.ActiveTabContent()
	if !ok || tab.Result == nil {
		a.sess.ShowNotification(models.AppSnackbar{Message: "Nothing to export.", Color: models.ColorWarning})
		return nil
	}

	path := filepath.Join(a.exportDir, fmt.Sprintf("%s.%s", tab.Title, format))
	result := tab.Result
	return func() tea.Msg {
		if err := export.ToFile(result, path, format); err != nil {
			a.sess.ShowNotification(models.AppSnackbar{
				Message: fmt.Sprintf("Export failed: %v", err),
				Color:   models.ColorError,
				Error:   true,
			})
			return opDoneMsg{op: "export", err: err}
		}
		a.sess.ShowNotification(models.AppSnackbar{
			Message: fmt.Sprintf("Exported %d rows to %s", len(result.Rows), path),
			Color:   models.ColorSuccess,
		})
		return opDoneMsg{op: "export"}
	}
}

// Run starts the terminal program and blocks until it exits
func Run(ctx context.Context, a *App) error {
	defer a.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if a.config.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(a, opts...)
	_, err := p.Run()
	return err
}
