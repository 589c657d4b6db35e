// File: reactor/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message is an immutable record shared read-only by every handler it is
// delivered to.

package reactor

// Message carries a Handle plus application data. It must not be modified
// after NewMessage returns; accessors hand out copies where needed.
type Message struct {
	handle  Handle
	command string
	param   string
	payload any
	fields  map[string]any
}

// MessageOption configures a Message under construction.
type MessageOption func(*Message)

// WithHandle overrides the Handle derived from command and param.
func WithHandle(h Handle) MessageOption {
	return func(m *Message) {
		m.handle = h
	}
}

// WithPayload attaches an arbitrary value. Receivers must treat it as read-only.
func WithPayload(v any) MessageOption {
	return func(m *Message) {
		m.payload = v
	}
}

// WithField sets a named field.
func WithField(key string, v any) MessageOption {
	return func(m *Message) {
		if m.fields == nil {
			m.fields = make(map[string]any)
		}
		m.fields[key] = v
	}
}

// NewMessage builds a message routed by HandleOf(command, param).
func NewMessage(command, param string, opts ...MessageOption) *Message {
	m := &Message{
		handle:  HandleOf(command, param),
		command: command,
		param:   param,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Message) Handle() Handle  { return m.handle }
func (m *Message) Command() string { return m.command }
func (m *Message) Param() string   { return m.param }
func (m *Message) Payload() any    { return m.payload }

// Field returns a named field.
func (m *Message) Field(key string) (any, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Fields returns a copy of all named fields.
func (m *Message) Fields() map[string]any {
	out := make(map[string]any, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// retarget returns a copy of m routed to h. The field map is shared since
// neither copy ever writes to it.
func (m *Message) retarget(h Handle) *Message {
	c := *m
	c.handle = h
	return &c
}
