package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Tyrowin/gocollab/internal/document"
)

// EventType is the discriminator carried in the "type" field of every
// document frame.
type EventType string

// Document frame tags.
const (
	TypeInitialState   EventType = "INITIAL_STATE"
	TypeUpdate         EventType = "UPDATE"
	TypeDocumentUpdate EventType = "DOCUMENT_UPDATE"
	TypeJoin           EventType = "JOIN"
	TypeLeave          EventType = "LEAVE"
	TypeUsersUpdate    EventType = "USERS_UPDATE"
)

// Event is a client-to-server document frame. The set of implementations
// is closed: Update, Join and Leave.
type Event interface {
	Type() EventType
	isEvent()
}

// Update replaces the document content.
type Update struct {
	Content   string
	Editor    string
	Timestamp string
}

// Join marks a user present.
type Join struct {
	User      string
	Timestamp string
}

// Leave marks a user absent.
type Leave struct {
	User      string
	Timestamp string
}

func (Update) Type() EventType { return TypeUpdate }
func (Join) Type() EventType   { return TypeJoin }
func (Leave) Type() EventType  { return TypeLeave }

func (Update) isEvent() {}
func (Join) isEvent()   {}
func (Leave) isEvent()  {}

type eventEnvelope struct {
	Type      EventType `json:"type"`
	Content   *string   `json:"content"`
	Editor    *string   `json:"editor"`
	User      *string   `json:"user"`
	Timestamp string    `json:"timestamp"`
}

// DecodeEvent parses a document frame into its concrete event. Frames
// whose tag is not UPDATE, JOIN or LEAVE fail with ErrUnknownEvent; frames
// that are not objects or miss a field their tag requires fail with
// ErrMalformed.
func DecodeEvent(raw []byte) (Event, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("%w: document frame is not an object", ErrMalformed)
	}

	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeUpdate:
		if env.Content == nil || env.Editor == nil {
			return nil, fmt.Errorf("%w: UPDATE needs content and editor", ErrMalformed)
		}
		return Update{Content: *env.Content, Editor: *env.Editor, Timestamp: env.Timestamp}, nil
	case TypeJoin:
		if env.User == nil {
			return nil, fmt.Errorf("%w: JOIN needs user", ErrMalformed)
		}
		return Join{User: *env.User, Timestamp: env.Timestamp}, nil
	case TypeLeave:
		if env.User == nil {
			return nil, fmt.Errorf("%w: LEAVE needs user", ErrMalformed)
		}
		return Leave{User: *env.User, Timestamp: env.Timestamp}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

type documentFrame struct {
	Type     EventType      `json:"type"`
	Document document.State `json:"document"`
}

type usersFrame struct {
	Type  EventType `json:"type"`
	Users []string  `json:"users"`
}

// EncodeInitialState builds the frame pushed to a connection right after
// it opens.
func EncodeInitialState(doc document.State) ([]byte, error) {
	return json.Marshal(documentFrame{Type: TypeInitialState, Document: doc.Clone()})
}

// EncodeDocumentUpdate builds the frame broadcast after an UPDATE.
func EncodeDocumentUpdate(doc document.State) ([]byte, error) {
	return json.Marshal(documentFrame{Type: TypeDocumentUpdate, Document: doc.Clone()})
}

// EncodeUsersUpdate builds the frame broadcast after a JOIN or LEAVE.
func EncodeUsersUpdate(users []string) ([]byte, error) {
	if users == nil {
		users = []string{}
	}
	return json.Marshal(usersFrame{Type: TypeUsersUpdate, Users: users})
}
