package view

// MessageType classifies a Result for the UI.
type MessageType string

const (
	MessageSuccess         MessageType = "success"
	MessageError           MessageType = "error"
	MessageAlreadySelected MessageType = "already_selected"
	MessageNothingValid    MessageType = "nothing_valid"
	MessageMessage         MessageType = "message"
)

// ResultData carries optional feedback for the caller.
type ResultData struct {
	Redirect string      `json:"redirect,omitempty"`
	Display  string      `json:"display,omitempty"`
	Type     MessageType `json:"type,omitempty"`
	Text     string      `json:"text,omitempty"`
	List     []string    `json:"list,omitempty"`
	Textarea string      `json:"textarea,omitempty"`
}

// Result is the outcome of an update delegate.
type Result struct {
	Success bool       `json:"success"`
	Data    ResultData `json:"data"`
}

// Ok returns a plain success.
func Ok() Result {
	return Result{Success: true}
}

// Fail returns a plain failure.
func Fail() Result {
	return Result{Success: false}
}

// FromBool lifts a boolean delegate result.
func FromBool(ok bool) Result {
	return Result{Success: ok}
}

// Failure returns a failure carrying a message.
func Failure(kind MessageType, text string) Result {
	return Result{Success: false, Data: ResultData{Type: kind, Text: text}}
}

// AlreadySelected signals the submitted view is the active one.
func AlreadySelected() Result {
	return Failure(MessageAlreadySelected, "This view is already selected")
}

// NothingValid signals no key of the change-set survived validation.
func NothingValid() Result {
	return Failure(MessageNothingValid, "No valid data found")
}

// Redirect returns a success that asks the caller to reload a URL.
func Redirect(url string) Result {
	return Result{Success: true, Data: ResultData{Redirect: url}}
}

// WithDisplay sets how the UI should present the result.
func (r Result) WithDisplay(display string) Result {
	r.Data.Display = display
	return r
}
