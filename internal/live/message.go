package live

import "strconv"

type Origin int

const (
	OriginSelf Origin = iota
	OriginPeer
	OriginSystem
)

func (o Origin) String() string {
	switch o {
	case OriginSelf:
		return "you"
	case OriginPeer:
		return "peer"
	default:
		return "system"
	}
}

// Message is what the registry delivers. Only Text goes on the wire.
type Message struct {
	Origin Origin
	Text   string
}

func Ack(text string) Message {
	return Message{Origin: OriginSelf, Text: "You wrote: " + text}
}

func Said(label, text string) Message {
	return Message{Origin: OriginPeer, Text: "Client " + label + " says: " + text}
}

func Left(label string) Message {
	return Message{Origin: OriginSystem, Text: "Client " + label + " left the chat"}
}

// RecordID announces a generated record, e.g. "[7]".
func RecordID(id int64) Message {
	return Message{Origin: OriginSystem, Text: "[" + strconv.FormatInt(id, 10) + "]"}
}
