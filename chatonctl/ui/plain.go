package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bringyour/chaton/comet"
)

// a line oriented `comet.Presentation` for pipes and dumb terminals.
// Status and title lines are written only when they change.
type Plain struct {
	out        io.Writer
	onNavigate func(url string)

	stateLock   sync.Mutex
	statusText  string
	title       string
	navigateUrl string
	// the last append did not end with a newline
	partial bool
}

// `onNavigate` may be nil
func NewPlain(out io.Writer, onNavigate func(url string)) *Plain {
	return &Plain{
		out:        out,
		onNavigate: onNavigate,
	}
}

func (self *Plain) ShowStatus(text string, class comet.StatusClass) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if text == self.statusText {
		return
	}
	self.statusText = text
	marker := "*"
	if class == comet.StatusAlert {
		marker = "!"
	}
	self.writeLine(fmt.Sprintf("%s %s", marker, text))
}

func (self *Plain) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.writeLine("----")
}

func (self *Plain) Append(fragment string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	text := comet.FragmentText(fragment)
	if text == "" {
		return
	}
	io.WriteString(self.out, text)
	self.partial = !strings.HasSuffix(text, "\n")
}

func (self *Plain) ScrollToEnd() {
}

func (self *Plain) SetTitle(title string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if title == self.title {
		return
	}
	self.title = title
	self.writeLine(fmt.Sprintf("# %s", title))
}

func (self *Plain) Disable() {
}

func (self *Plain) Enable(clear bool) {
}

func (self *Plain) Navigate(url string) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.navigateUrl = url
	}()
	if self.onNavigate != nil {
		self.onNavigate(url)
	}
}

func (self *Plain) NavigateUrl() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.navigateUrl
}

// must be called with the state lock
func (self *Plain) writeLine(line string) {
	if self.partial {
		io.WriteString(self.out, "\n")
		self.partial = false
	}
	io.WriteString(self.out, line+"\n")
}
