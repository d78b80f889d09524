package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// ConnectionFormSubmitMsg carries a connection to add
type ConnectionFormSubmitMsg struct {
	Connection models.ServerConnection
}

// ConnectionFormTestMsg carries a connection to probe without saving it
type ConnectionFormTestMsg struct {
	Connection models.ServerConnection
}

// ConnectionFormCancelMsg is sent when the form is dismissed
type ConnectionFormCancelMsg struct{}

const (
	fieldName = iota
	fieldDBMS
	fieldHost
	fieldPort
	fieldUsername
	fieldPassword
	fieldConnString
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Name", "DBMS", "Host", "Port", "Username", "Password", "Conn. string",
}

// ConnectionForm edits a server connection. The DBMS field cycles
// through the supported systems with ←/→.
type ConnectionForm struct {
	Width int
	Theme theme.Theme

	inputs      [fieldCount]textinput.Model
	dbms        int
	activeField int
	err         string
}

// NewConnectionForm creates an empty form
func NewConnectionForm(th theme.Theme) *ConnectionForm {
	f := &ConnectionForm{Width: 60, Theme: th}
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 512
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	f.inputs[fieldPort].CharLimit = 5
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '*'
	f.Reset(nil)
	return f
}

// Reset clears the form, or fills it from conn when it is not nil
func (f *ConnectionForm) Reset(conn *models.ServerConnection) {
	f.err = ""
	f.dbms = 0
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	if conn != nil {
		f.inputs[fieldName].SetValue(conn.Name)
		f.inputs[fieldHost].SetValue(conn.Host)
		if conn.Port != 0 {
			f.inputs[fieldPort].SetValue(strconv.Itoa(conn.Port))
		}
		f.inputs[fieldUsername].SetValue(conn.Username)
		f.inputs[fieldPassword].SetValue(conn.Password)
		f.inputs[fieldConnString].SetValue(conn.ConnectionString)
		for i, d := range models.AllDBMS() {
			if d == conn.DBMS {
				f.dbms = i
			}
		}
	}
	f.focus(fieldName)
}

func (f *ConnectionForm) focus(field int) {
	f.inputs[f.activeField].Blur()
	f.activeField = field
	if field != fieldDBMS {
		f.inputs[field].Focus()
	}
}

// Connection builds a connection from the fields
func (f *ConnectionForm) Connection() (models.ServerConnection, error) {
	conn := models.ServerConnection{
		Name:             strings.TrimSpace(f.inputs[fieldName].Value()),
		DBMS:             models.AllDBMS()[f.dbms],
		Host:             strings.TrimSpace(f.inputs[fieldHost].Value()),
		Username:         strings.TrimSpace(f.inputs[fieldUsername].Value()),
		Password:         f.inputs[fieldPassword].Value(),
		ConnectionString: strings.TrimSpace(f.inputs[fieldConnString].Value()),
	}

	if port := strings.TrimSpace(f.inputs[fieldPort].Value()); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return conn, fmt.Errorf("port must be a number between 1 and 65535")
		}
		conn.Port = p
	}

	if conn.Name == "" {
		return conn, fmt.Errorf("name is required")
	}
	if conn.Host == "" && conn.ConnectionString == "" {
		return conn, fmt.Errorf("host or connection string is required")
	}
	return conn, nil
}

// Update handles key input
func (f *ConnectionForm) Update(msg tea.KeyMsg) (*ConnectionForm, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return f, func() tea.Msg { return ConnectionFormCancelMsg{} }

	case "up", "shift+tab":
		f.focus((f.activeField + fieldCount - 1) % fieldCount)
		return f, nil

	case "down", "tab":
		f.focus((f.activeField + 1) % fieldCount)
		return f, nil

	case "enter", "ctrl+t":
		conn, err := f.Connection()
		if err != nil {
			f.err = err.Error()
			return f, nil
		}
		f.err = ""
		if msg.String() == "ctrl+t" {
			return f, func() tea.Msg { return ConnectionFormTestMsg{Connection: conn} }
		}
		return f, func() tea.Msg { return ConnectionFormSubmitMsg{Connection: conn} }
	}

	if f.activeField == fieldDBMS {
		n := len(models.AllDBMS())
		switch msg.String() {
		case "left", "h":
			f.dbms = (f.dbms + n - 1) % n
		case "right", "l", " ":
			f.dbms = (f.dbms + 1) % n
		}
		return f, nil
	}

	var cmd tea.Cmd
	f.inputs[f.activeField], cmd = f.inputs[f.activeField].Update(msg)
	return f, cmd
}

// View renders the form
func (f *ConnectionForm) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(f.Theme.BorderFocused)
	b.WriteString(titleStyle.Render("New connection"))
	b.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Foreground(f.Theme.Muted).Width(14)
	for i := 0; i < fieldCount; i++ {
		prefix := "  "
		if i == f.activeField {
			prefix = "> "
		}

		var value string
		if i == fieldDBMS {
			value = "‹ " + models.AllDBMS()[f.dbms].String() + " ›"
		} else {
			value = f.inputs[i].View()
		}
		b.WriteString(prefix + labelStyle.Render(fieldLabels[i]) + value + "\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(f.Theme.Error).Render(f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("↑/↓ field · ←/→ DBMS · enter save · ctrl+t test · esc cancel"))

	return lipgloss.NewStyle().
		Width(f.Width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(f.Theme.BorderFocused).
		Padding(1, 2).
		Render(b.String())
}
