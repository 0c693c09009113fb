// Package ui renders a comet client to a terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bringyour/chaton/comet"
)

var (
	statusOkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusAlertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	labelStyle       = lipgloss.NewStyle().Faint(true)
	disabledStyle    = lipgloss.NewStyle().Faint(true)
)

// user actions the model reports back to the client
type Handlers struct {
	// the terminal gained focus, i.e. the user is on the view
	Focus func()
	// the terminal lost focus
	Blur   func()
	Submit func(nick string, text string, remember bool)
}

type statusMsg struct {
	text  string
	class comet.StatusClass
}

type clearMsg struct{}

type appendMsg struct {
	fragment string
}

type scrollMsg struct{}

type titleMsg struct {
	title string
}

type disableMsg struct{}

type enableMsg struct {
	clear bool
}

type navigateMsg struct {
	url string
}

type inputField int

const (
	inputText inputField = iota
	inputNick
)

// the bubbletea model for one chat room
type Model struct {
	handlers Handlers

	statusText  string
	statusClass comet.StatusClass
	title       string

	content  strings.Builder
	viewport viewport.Model

	nick     textinput.Model
	text     textinput.Model
	focused  inputField
	remember bool
	disabled bool

	navigateUrl string
}

// `nick` prefills the nick field. `remember` is the initial state of the remember toggle.
func NewModel(handlers Handlers, nick string, remember bool) *Model {
	nickInput := textinput.New()
	nickInput.Placeholder = "nick"
	nickInput.Prompt = ""
	nickInput.CharLimit = 64
	nickInput.SetValue(nick)

	textInput := textinput.New()
	textInput.Placeholder = "say something"
	textInput.Prompt = "> "
	textInput.Focus()

	return &Model{
		handlers: handlers,
		viewport: viewport.New(80, 20),
		nick:     nickInput,
		text:     textInput,
		focused:  inputText,
		remember: remember,
	}
}

func (self *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (self *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// status line, input line, help line
		height := msg.Height - 3
		if height < 1 {
			height = 1
		}
		self.viewport.Width = msg.Width
		self.viewport.Height = height
		self.nick.Width = 16
		self.text.Width = msg.Width - self.nick.Width - 6
		self.viewport.SetContent(self.content.String())
		return self, nil

	case tea.FocusMsg:
		if self.handlers.Focus != nil {
			self.handlers.Focus()
		}
		return self, nil

	case tea.BlurMsg:
		if self.handlers.Blur != nil {
			self.handlers.Blur()
		}
		return self, nil

	case statusMsg:
		self.statusText = msg.text
		self.statusClass = msg.class
		return self, nil

	case clearMsg:
		self.content.Reset()
		self.viewport.SetContent("")
		return self, nil

	case appendMsg:
		self.content.WriteString(comet.FragmentText(msg.fragment))
		self.viewport.SetContent(self.content.String())
		return self, nil

	case scrollMsg:
		self.viewport.GotoBottom()
		return self, nil

	case titleMsg:
		self.title = msg.title
		return self, tea.SetWindowTitle(msg.title)

	case disableMsg:
		self.disabled = true
		return self, nil

	case enableMsg:
		self.disabled = false
		if msg.clear {
			self.text.Reset()
		}
		return self, nil

	case navigateMsg:
		self.navigateUrl = msg.url
		return self, tea.Quit

	case tea.KeyMsg:
		return self.updateKey(msg)
	}
	return self, nil
}

func (self *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return self, tea.Quit
	case "pgup", "pgdown":
		var cmd tea.Cmd
		self.viewport, cmd = self.viewport.Update(msg)
		return self, cmd
	}

	if self.disabled {
		// the form is inert while a post is in flight
		return self, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		self.toggleFocus()
		return self, nil
	case "ctrl+r":
		self.remember = !self.remember
		return self, nil
	case "enter":
		if self.handlers.Submit != nil {
			self.handlers.Submit(
				strings.TrimSpace(self.nick.Value()),
				self.text.Value(),
				self.remember,
			)
		}
		return self, nil
	}

	var cmd tea.Cmd
	switch self.focused {
	case inputNick:
		self.nick, cmd = self.nick.Update(msg)
	default:
		self.text, cmd = self.text.Update(msg)
	}
	return self, cmd
}

func (self *Model) toggleFocus() {
	if self.focused == inputText {
		self.focused = inputNick
		self.text.Blur()
		self.nick.Focus()
	} else {
		self.focused = inputText
		self.nick.Blur()
		self.text.Focus()
	}
}

func (self *Model) View() string {
	var b strings.Builder

	switch self.statusClass {
	case comet.StatusAlert:
		b.WriteString(statusAlertStyle.Render(self.statusText))
	default:
		b.WriteString(statusOkStyle.Render(self.statusText))
	}
	if self.title != "" {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(self.title))
	}
	b.WriteString("\n")

	b.WriteString(self.viewport.View())
	b.WriteString("\n")

	form := fmt.Sprintf("%s %s", self.nick.View(), self.text.View())
	if self.disabled {
		form = disabledStyle.Render(form)
	}
	b.WriteString(form)
	b.WriteString("\n")

	remember := "[ ]"
	if self.remember {
		remember = "[x]"
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf(
		"%s remember nick (ctrl+r)  tab: switch field  enter: send  esc: quit",
		remember,
	)))
	return b.String()
}

func (self *Model) Title() string {
	return self.title
}

func (self *Model) Remember() bool {
	return self.remember
}

func (self *Model) Disabled() bool {
	return self.disabled
}

func (self *Model) Content() string {
	return self.content.String()
}

// the url the client asked to reload from, or empty
func (self *Model) NavigateUrl() string {
	return self.navigateUrl
}

// anything that delivers messages to a running bubbletea program. `*tea.Program` satisfies this.
type Sender interface {
	Send(msg tea.Msg)
}

// a `comet.Presentation` that forwards every render call to the program as a message.
// Rendering happens on the program goroutine.
type Tui struct {
	sender Sender
}

func NewTui(sender Sender) *Tui {
	return &Tui{
		sender: sender,
	}
}

func (self *Tui) ShowStatus(text string, class comet.StatusClass) {
	self.sender.Send(statusMsg{text: text, class: class})
}

func (self *Tui) Clear() {
	self.sender.Send(clearMsg{})
}

func (self *Tui) Append(fragment string) {
	self.sender.Send(appendMsg{fragment: fragment})
}

func (self *Tui) ScrollToEnd() {
	self.sender.Send(scrollMsg{})
}

func (self *Tui) SetTitle(title string) {
	self.sender.Send(titleMsg{title: title})
}

func (self *Tui) Disable() {
	self.sender.Send(disableMsg{})
}

func (self *Tui) Enable(clear bool) {
	self.sender.Send(enableMsg{clear: clear})
}

func (self *Tui) Navigate(url string) {
	self.sender.Send(navigateMsg{url: url})
}
