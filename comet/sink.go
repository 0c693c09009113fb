package comet

type StatusClass string

const (
	StatusOk    StatusClass = "status-ok"
	StatusAlert StatusClass = "status-alert"
)

type StatusSink interface {
	ShowStatus(text string, class StatusClass)
}

// the live view pane
type ViewSink interface {
	Clear()
	// `fragment` is an html fragment from the server and may be empty
	Append(fragment string)
	ScrollToEnd()
}

type TitleSink interface {
	SetTitle(title string)
}

type PostForm interface {
	Disable()
	Enable(clear bool)
}

type Navigator interface {
	// discard all local state and load the service again from `url`
	Navigate(url string)
}

// everything the client renders to. all calls are made from the client event loop.
type Presentation interface {
	StatusSink
	ViewSink
	TitleSink
	PostForm
	Navigator
}
