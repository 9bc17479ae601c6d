package sealedsender

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
)

// ContentHint tells the recipient how to treat content it cannot decrypt.
// It is carried, never interpreted.
type ContentHint uint32

const (
	ContentHintDefault    ContentHint = 0
	ContentHintResendable ContentHint = 1
	ContentHintImplicit   ContentHint = 2
)

// UnidentifiedSenderMessageContent binds an inner message to its sender certificate.
type UnidentifiedSenderMessageContent struct {
	msgType    message.CiphertextMessageType
	sender     *SenderCertificate
	contents   []byte
	hint       ContentHint
	groupID    []byte
	serialized []byte
}

type contentWire struct {
	Type        uint8  `json:"type"`
	Sender      []byte `json:"sender_certificate"`
	Contents    []byte `json:"content"`
	ContentHint uint32 `json:"content_hint"`
	GroupID     []byte `json:"group_id"`
}

// NewUnidentifiedSenderMessageContent builds the content. A nil groupID is stored as empty.
func NewUnidentifiedSenderMessageContent(msgType message.CiphertextMessageType, sender *SenderCertificate, contents []byte, hint ContentHint, groupID []byte) (*UnidentifiedSenderMessageContent, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: nil sender certificate", ErrInvalidArgument)
	}
	if groupID == nil {
		groupID = []byte{}
	}
	serialized, err := json.Marshal(contentWire{
		Type:        uint8(msgType),
		Sender:      sender.Serialize(),
		Contents:    contents,
		ContentHint: uint32(hint),
		GroupID:     groupID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	return &UnidentifiedSenderMessageContent{
		msgType:    msgType,
		sender:     sender,
		contents:   append([]byte(nil), contents...),
		hint:       hint,
		groupID:    append([]byte{}, groupID...),
		serialized: serialized,
	}, nil
}

func DeserializeUnidentifiedSenderMessageContent(data []byte) (*UnidentifiedSenderMessageContent, error) {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrInvalidSealedMessage, err)
	}
	sender, err := DeserializeSenderCertificate(w.Sender)
	if err != nil {
		return nil, err
	}
	if w.GroupID == nil {
		w.GroupID = []byte{}
	}
	return &UnidentifiedSenderMessageContent{
		msgType:    message.CiphertextMessageType(w.Type),
		sender:     sender,
		contents:   w.Contents,
		hint:       ContentHint(w.ContentHint),
		groupID:    w.GroupID,
		serialized: append([]byte(nil), data...),
	}, nil
}

func (c *UnidentifiedSenderMessageContent) MsgType() message.CiphertextMessageType { return c.msgType }

func (c *UnidentifiedSenderMessageContent) SenderCertificate() *SenderCertificate { return c.sender }

func (c *UnidentifiedSenderMessageContent) Contents() []byte { return c.contents }

func (c *UnidentifiedSenderMessageContent) ContentHint() ContentHint { return c.hint }

// GroupID is empty, not nil, for messages outside a group.
func (c *UnidentifiedSenderMessageContent) GroupID() []byte { return c.groupID }

func (c *UnidentifiedSenderMessageContent) Serialize() []byte { return c.serialized }
