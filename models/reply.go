package models

// Reply is what the dialogue produces for one inbound message. The
// transport renders it with an exhaustive type switch over Text and
// Options.
type Reply interface {
	reply()
}

// Text is a plain outbound message.
type Text struct {
	Body string
}

// Options is an outbound message carrying up to three selectable
// quick-reply buttons, matching the WhatsApp button cap.
type Options struct {
	Body    string
	Buttons []Button
}

// Button is one selectable choice, exposed to text-only clients with a
// numeral label.
type Button struct {
	ID    string
	Title string
}

func (Text) reply()    {}
func (Options) reply() {}
